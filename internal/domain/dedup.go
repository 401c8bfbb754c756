package domain

// MergeReason explains why jobs were grouped as duplicates.
type MergeReason string

const (
	MergeExactHash    MergeReason = "exact_hash"
	MergeCanonicalURL MergeReason = "canonical_url"
	MergeFuzzy        MergeReason = "fuzzy"
)

// DuplicateGroup is a canonical job plus the records it subsumes.
// Ephemeral: groups exist only during a deduplication pass.
type DuplicateGroup struct {
	Canonical  *ScrapedJob   `json:"canonical"`
	Duplicates []*ScrapedJob `json:"duplicates"`
	Confidence float64       `json:"confidence"`
	Reason     MergeReason   `json:"reason"`
}
