package domain

// ComponentScores holds the normalized [0,1] scoring components that make
// up a final match score.
type ComponentScores struct {
	SemanticRelevance float64 `json:"semantic_relevance"`
	Recency           float64 `json:"recency"`
	Liveness          float64 `json:"liveness"`
	Personalization   float64 `json:"personalization"`
}

// MatchResult is one ranked job for one candidate.
type MatchResult struct {
	CandidateID   string          `json:"candidate_id"`
	JobID         string          `json:"job_id"`
	FinalScore    float64         `json:"final_score"`
	Components    ComponentScores `json:"components"`
	Explanation   string          `json:"explanation"`
	MatchedSkills []string        `json:"matched_skills,omitempty"`
}
