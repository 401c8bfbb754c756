package domain

// CandidatePreferences holds candidate-specific preferences beyond skills.
type CandidatePreferences struct {
	Locations  []string       `json:"locations,omitempty"`
	WorkTypes  []WorkType     `json:"work_types,omitempty"`
	SalaryMin  float64        `json:"salary_min,omitempty"`
	Industries []string       `json:"industries,omitempty"`
	Employment EmploymentType `json:"employment,omitempty"`
}

// CandidateProfile is the narrow read model exposed by the external
// account/profile subsystem.
type CandidateProfile struct {
	ID              string               `json:"id" db:"id"`
	Skills          []string             `json:"skills"`
	ExperienceYears float64              `json:"experience_years" db:"experience_years"`
	Headline        string               `json:"headline" db:"headline"`
	Preferences     CandidatePreferences `json:"preferences"`
}
