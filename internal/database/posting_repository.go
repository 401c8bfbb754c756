package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jobradar/jobradar/internal/domain"
)

// ErrPostingNotFound is returned when no posting matches the lookup.
var ErrPostingNotFound = errors.New("posting not found")

// postingColumns is the full column list in insert order.
const postingColumns = `
	id, external_id, source, title, normalized_title, company,
	location_raw, location_norm, country_code, remote,
	description, description_hash, skills,
	work_type, employment_type, experience_level,
	salary_min, salary_max, salary_currency, salary_period,
	url, application_url, method,
	status, trust_score, ghost_score, ghost_reasons,
	consecutive_miss, repost_count, recruiter_contact,
	view_count, application_count,
	posted_at, first_seen_at, updated_at, last_checked_at, expires_at`

// PostingRepository handles database operations for job postings.
type PostingRepository struct {
	db *sqlx.DB
}

// NewPostingRepository creates a posting repository.
func NewPostingRepository(db *sqlx.DB) *PostingRepository {
	return &PostingRepository{db: db}
}

// Upsert inserts the posting or refreshes the existing row keyed by
// (external_id, source). Content fields are overwritten; first_seen_at and
// the liveness and trust state of an existing row are preserved. Returns
// whether a new row was created.
func (r *PostingRepository) Upsert(ctx context.Context, p *domain.JobPosting) (bool, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	query := `
		INSERT INTO job_postings (` + postingColumns + `)
		VALUES (
			:id, :external_id, :source, :title, :normalized_title, :company,
			:location_raw, :location_norm, :country_code, :remote,
			:description, :description_hash, :skills,
			:work_type, :employment_type, :experience_level,
			:salary_min, :salary_max, :salary_currency, :salary_period,
			:url, :application_url, :method,
			:status, :trust_score, :ghost_score, :ghost_reasons,
			:consecutive_miss, :repost_count, :recruiter_contact,
			:view_count, :application_count,
			:posted_at, :first_seen_at, :updated_at, :last_checked_at, :expires_at
		)
		ON CONFLICT (external_id, source) DO UPDATE SET
			title = EXCLUDED.title,
			normalized_title = EXCLUDED.normalized_title,
			company = EXCLUDED.company,
			location_raw = EXCLUDED.location_raw,
			location_norm = EXCLUDED.location_norm,
			country_code = EXCLUDED.country_code,
			remote = EXCLUDED.remote,
			description = EXCLUDED.description,
			description_hash = EXCLUDED.description_hash,
			skills = EXCLUDED.skills,
			work_type = EXCLUDED.work_type,
			employment_type = EXCLUDED.employment_type,
			experience_level = EXCLUDED.experience_level,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			salary_currency = EXCLUDED.salary_currency,
			salary_period = EXCLUDED.salary_period,
			url = EXCLUDED.url,
			application_url = EXCLUDED.application_url,
			method = EXCLUDED.method,
			posted_at = EXCLUDED.posted_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, first_seen_at, (xmax = 0) AS inserted
	`

	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, p)
	if err != nil {
		return false, fmt.Errorf("failed to upsert posting: %w", err)
	}
	defer rows.Close()

	var inserted bool
	if rows.Next() {
		if scanErr := rows.Scan(&p.ID, &p.FirstSeenAt, &inserted); scanErr != nil {
			return false, fmt.Errorf("failed to scan upsert result: %w", scanErr)
		}
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return false, fmt.Errorf("failed to read upsert result: %w", rowsErr)
	}
	return inserted, nil
}

// GetByID retrieves a posting by its ID.
func (r *PostingRepository) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	var p domain.JobPosting
	query := `SELECT ` + postingColumns + ` FROM job_postings WHERE id = $1`

	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return &p, nil
}

// GetBySourceKey retrieves a posting by its uniqueness key.
func (r *PostingRepository) GetBySourceKey(ctx context.Context, externalID, source string) (*domain.JobPosting, error) {
	var p domain.JobPosting
	query := `SELECT ` + postingColumns + ` FROM job_postings WHERE external_id = $1 AND source = $2`

	if err := r.db.GetContext(ctx, &p, query, externalID, source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostingNotFound
		}
		return nil, fmt.Errorf("failed to get posting: %w", err)
	}
	return &p, nil
}

// ListDueForCheck returns non-expired postings whose last liveness check is
// older than the cutoff, oldest check first. Never-checked postings sort
// ahead of everything.
func (r *PostingRepository) ListDueForCheck(ctx context.Context, cutoff time.Time, limit int) ([]*domain.JobPosting, error) {
	var postings []*domain.JobPosting
	query := `
		SELECT ` + postingColumns + `
		FROM job_postings
		WHERE status != 'expired'
		  AND (last_checked_at IS NULL OR last_checked_at < $1)
		ORDER BY last_checked_at ASC NULLS FIRST
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &postings, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("failed to list postings due for check: %w", err)
	}
	if postings == nil {
		postings = []*domain.JobPosting{}
	}
	return postings, nil
}

// UpdateLiveness records the outcome of a liveness check on the posting row.
func (r *PostingRepository) UpdateLiveness(ctx context.Context, p *domain.JobPosting) error {
	query := `
		UPDATE job_postings
		SET status = $1, trust_score = $2, consecutive_miss = $3,
		    last_checked_at = $4, expires_at = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		p.Status, p.TrustScore, p.ConsecutiveMiss, p.LastCheckedAt, p.ExpiresAt, p.ID)
	return execRequireRows(result, err,
		fmt.Errorf("%w: %s", ErrPostingNotFound, p.ID), "update liveness")
}

// UpdateGhostScore stores a recomputed ghost score and its reasons.
func (r *PostingRepository) UpdateGhostScore(ctx context.Context, id string, score int, reasons domain.StringSlice) error {
	query := `
		UPDATE job_postings
		SET ghost_score = $1, ghost_reasons = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, score, reasons, id)
	return execRequireRows(result, err,
		fmt.Errorf("%w: %s", ErrPostingNotFound, id), "update ghost score")
}

// IncrementRepost bumps the repost counter when an expired posting
// reappears with fresh content.
func (r *PostingRepository) IncrementRepost(ctx context.Context, id string) error {
	query := `
		UPDATE job_postings
		SET repost_count = repost_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	return execRequireRows(result, err,
		fmt.Errorf("%w: %s", ErrPostingNotFound, id), "increment repost")
}

// ListRankable returns postings eligible for ranking: not expired and with
// a ghost score below the likely-ghost threshold.
func (r *PostingRepository) ListRankable(ctx context.Context, ghostCeiling, limit int) ([]*domain.JobPosting, error) {
	var postings []*domain.JobPosting
	query := `
		SELECT ` + postingColumns + `
		FROM job_postings
		WHERE status != 'expired'
		  AND ghost_score < $1
		ORDER BY posted_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &postings, query, ghostCeiling, limit); err != nil {
		return nil, fmt.Errorf("failed to list rankable postings: %w", err)
	}
	if postings == nil {
		postings = []*domain.JobPosting{}
	}
	return postings, nil
}

// CountByStatus returns the number of postings in the given status, or all
// postings when status is empty.
func (r *PostingRepository) CountByStatus(ctx context.Context, status domain.LivenessStatus) (int, error) {
	var (
		count int
		query string
		args  []any
	)
	if status != "" {
		query = `SELECT COUNT(*) FROM job_postings WHERE status = $1`
		args = []any{status}
	} else {
		query = `SELECT COUNT(*) FROM job_postings`
	}

	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count postings: %w", err)
	}
	return count, nil
}
