package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jobradar/jobradar/internal/domain"
)

// ErrCandidateNotFound is returned when no candidate profile matches.
var ErrCandidateNotFound = errors.New("candidate not found")

// CandidateRepository reads candidate profiles. The profile table is owned
// by the account subsystem; this repository is read-only.
type CandidateRepository struct {
	db *sqlx.DB
}

// NewCandidateRepository creates a candidate repository.
func NewCandidateRepository(db *sqlx.DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// candidateRow is the raw row shape with JSONB columns still encoded.
type candidateRow struct {
	ID              string  `db:"id"`
	Skills          []byte  `db:"skills"`
	ExperienceYears float64 `db:"experience_years"`
	Headline        string  `db:"headline"`
	Preferences     []byte  `db:"preferences"`
}

// GetProfile retrieves one candidate's matching profile.
func (r *CandidateRepository) GetProfile(ctx context.Context, id string) (*domain.CandidateProfile, error) {
	var row candidateRow
	query := `
		SELECT id, skills, experience_years, headline, preferences
		FROM candidate_profiles
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate profile: %w", err)
	}

	profile := &domain.CandidateProfile{
		ID:              row.ID,
		ExperienceYears: row.ExperienceYears,
		Headline:        row.Headline,
	}
	if len(row.Skills) > 0 {
		if err := json.Unmarshal(row.Skills, &profile.Skills); err != nil {
			return nil, fmt.Errorf("failed to decode candidate skills: %w", err)
		}
	}
	if len(row.Preferences) > 0 {
		if err := json.Unmarshal(row.Preferences, &profile.Preferences); err != nil {
			return nil, fmt.Errorf("failed to decode candidate preferences: %w", err)
		}
	}
	return profile, nil
}
