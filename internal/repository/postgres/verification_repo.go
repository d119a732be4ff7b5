package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"propveris/internal/domain"
	"propveris/internal/port"
)

type verificationRepo struct {
	db *sqlx.DB
}

// NewVerificationRepo creates a new PostgreSQL-backed
// VerificationRepository.
func NewVerificationRepo(db *sqlx.DB) port.VerificationRepository {
	return &verificationRepo{db: db}
}

func (r *verificationRepo) Create(ctx context.Context, v *domain.Verification) error {
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	query := `INSERT INTO verifications (
		id, document_type, file_name, content_type, size_bytes,
		s3_bucket, s3_key, queue_status, attempts, retry_after,
		status, failure_reason, failure_detail, fields, verdict,
		model, submitted_by, completed_at, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15,
		$16, $17, $18, $19, $20
	)`

	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.DocumentType, v.FileName, v.ContentType, v.SizeBytes,
		v.S3Bucket, v.S3Key, v.QueueStatus, v.Attempts, v.RetryAfter,
		v.Status, v.FailureReason, v.FailureDetail, v.Fields, v.Verdict,
		v.Model, v.SubmittedBy, v.CompletedAt, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting verification: %w", err)
	}
	return nil
}

func (r *verificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error) {
	var v domain.Verification
	query := `SELECT * FROM verifications WHERE id = $1`
	if err := r.db.GetContext(ctx, &v, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting verification: %w", err)
	}
	return &v, nil
}

func (r *verificationRepo) List(ctx context.Context, offset, limit int) ([]domain.Verification, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM verifications`); err != nil {
		return nil, 0, fmt.Errorf("counting verifications: %w", err)
	}

	var items []domain.Verification
	query := `SELECT * FROM verifications ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	if err := r.db.SelectContext(ctx, &items, query, offset, limit); err != nil {
		return nil, 0, fmt.Errorf("listing verifications: %w", err)
	}
	return items, total, nil
}

func (r *verificationRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Verification, error) {
	// SKIP LOCKED lets multiple workers poll the same table without
	// claiming each other's rows.
	query := `UPDATE verifications SET
		queue_status = $1, updated_at = NOW()
	WHERE id IN (
		SELECT id FROM verifications
		WHERE queue_status = $2
		  AND (retry_after IS NULL OR retry_after <= NOW())
		ORDER BY created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING *`

	var items []domain.Verification
	if err := r.db.SelectContext(ctx, &items, query,
		domain.QueueStatusProcessing, domain.QueueStatusQueued, limit); err != nil {
		return nil, fmt.Errorf("claiming queued verifications: %w", err)
	}
	return items, nil
}

func (r *verificationRepo) UpdateResult(ctx context.Context, v *domain.Verification) error {
	v.UpdatedAt = time.Now().UTC()

	query := `UPDATE verifications SET
		queue_status = $2, attempts = $3, retry_after = $4,
		status = $5, failure_reason = $6, failure_detail = $7,
		fields = $8, verdict = $9, model = $10,
		completed_at = $11, updated_at = $12
	WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.QueueStatus, v.Attempts, v.RetryAfter,
		v.Status, v.FailureReason, v.FailureDetail,
		v.Fields, v.Verdict, v.Model,
		v.CompletedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating verification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *verificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting verification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
