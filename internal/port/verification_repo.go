package port

import (
	"context"

	"github.com/google/uuid"

	"propveris/internal/domain"
)

// VerificationRepository persists submitted verifications and their
// results.
type VerificationRepository interface {
	Create(ctx context.Context, v *domain.Verification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error)
	List(ctx context.Context, offset, limit int) ([]domain.Verification, int, error)
	// ClaimQueued atomically marks up to limit queued verifications as
	// processing and returns them. Rows whose retry_after is in the
	// future are skipped.
	ClaimQueued(ctx context.Context, limit int) ([]domain.Verification, error)
	// UpdateResult stores the pipeline outcome (or requeue state) for a
	// claimed verification.
	UpdateResult(ctx context.Context, v *domain.Verification) error
	Delete(ctx context.Context, id uuid.UUID) error
}
