package extractor

import (
	"propveris/internal/domain"
	"propveris/internal/schema"
)

// FilterRelevant drops spans whose predicted role is not part of the
// document type's schema. Order is preserved: downstream tie-breaking
// relies on page/location order of the remaining spans.
func FilterRelevant(fields []domain.ExtractedField, docType domain.DocumentType) []domain.ExtractedField {
	s := schema.ForType(docType)
	if s == nil {
		return nil
	}
	relevant := s.RelevantRoles()
	out := make([]domain.ExtractedField, 0, len(fields))
	for _, f := range fields {
		if relevant[f.Role] {
			out = append(out, f)
		}
	}
	return out
}
