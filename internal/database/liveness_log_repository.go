package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jobradar/jobradar/internal/domain"
)

// LivenessLogRepository handles the append-only liveness-check log.
type LivenessLogRepository struct {
	db *sqlx.DB
}

// NewLivenessLogRepository creates a liveness-log repository.
func NewLivenessLogRepository(db *sqlx.DB) *LivenessLogRepository {
	return &LivenessLogRepository{db: db}
}

// Append records one liveness check. Entries are never updated or deleted.
func (r *LivenessLogRepository) Append(ctx context.Context, check *domain.LivenessCheck) error {
	if check.ID == "" {
		check.ID = uuid.NewString()
	}

	query := `
		INSERT INTO liveness_checks (id, job_id, checked_at, outcome, status, http_code, detail)
		VALUES (:id, :job_id, :checked_at, :outcome, :status, :http_code, :detail)
	`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, check); err != nil {
		return fmt.Errorf("failed to append liveness check: %w", err)
	}
	return nil
}

// ListByJob returns the check history for one posting, newest first.
func (r *LivenessLogRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]*domain.LivenessCheck, error) {
	var checks []*domain.LivenessCheck
	query := `
		SELECT id, job_id, checked_at, outcome, status, http_code, detail
		FROM liveness_checks
		WHERE job_id = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &checks, query, jobID, limit); err != nil {
		return nil, fmt.Errorf("failed to list liveness checks: %w", err)
	}
	if checks == nil {
		checks = []*domain.LivenessCheck{}
	}
	return checks, nil
}
