package port

import (
	"context"

	"propveris/internal/domain"
)

// ExtractInput carries one raw document into the visual-document model.
// The extractor owns the bytes only for the duration of the call.
type ExtractInput struct {
	FileBytes    []byte
	ContentType  string
	DocumentType domain.DocumentType
}

// FieldExtractor abstracts the layout-aware visual-document model that
// converts raw document bytes into located text fields.
type FieldExtractor interface {
	Extract(ctx context.Context, input ExtractInput) ([]domain.ExtractedField, error)
}
