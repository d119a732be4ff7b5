package pipeline

import (
	"context"
	"errors"

	"propveris/internal/domain"
	"propveris/internal/schema"
)

// Assemble merges the pipeline's stage outputs into the terminal
// VerificationRecord. It performs no inference of its own: the same
// inputs always produce the same record, byte for byte. Stage failure
// is reified into the record's status rather than propagated; the only
// error Assemble itself returns is the programming-contract violation
// of an unknown document type.
func Assemble(
	docType domain.DocumentType,
	record domain.NormalizedRecord,
	verdict *domain.ReasoningVerdict,
	stageErr error,
	notes []domain.FieldNote,
) (*domain.VerificationRecord, error) {
	s := schema.ForType(docType)
	if s == nil {
		return nil, domain.ErrUnknownDocumentType
	}

	// The field map always covers the full schema, sentinel-filled when
	// a stage failed before normalization ran.
	fields := make(map[string]domain.FieldValue, len(s.Fields))
	for _, spec := range s.Fields {
		if v, ok := record.Fields[spec.Name]; ok {
			fields[spec.Name] = v
		} else {
			fields[spec.Name] = domain.NotFoundValue(spec.Kind)
		}
	}

	out := &domain.VerificationRecord{
		DocumentType:    docType,
		ExtractedFields: fields,
		Benefits:        []domain.VerdictItem{},
		Risks:           []domain.VerdictItem{},
		DegradedFields:  notes,
	}

	if stageErr != nil {
		out.Status = domain.StatusFailed
		out.FailureReason = classifyFailure(stageErr)
		out.FailureDetail = stageErr.Error()
		return out, nil
	}

	if verdict != nil {
		if len(verdict.Benefits) > 0 {
			out.Benefits = verdict.Benefits
		}
		if len(verdict.Risks) > 0 {
			out.Risks = verdict.Risks
		}
		out.ParseMethod = verdict.Method
		out.Model = verdict.Model
	}

	if len(notes) > 0 {
		out.Status = domain.StatusPartialFailure
	} else {
		out.Status = domain.StatusSuccess
	}
	return out, nil
}

// classifyFailure maps a stage error onto the failure taxonomy.
func classifyFailure(err error) domain.FailureReason {
	switch {
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.ReasonTimeout
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return domain.ReasonUnsupportedMedia
	case errors.Is(err, domain.ErrReasoningParse):
		return domain.ReasonReasoningParse
	case errors.Is(err, domain.ErrReasoningBackend):
		return domain.ReasonReasoningBackend
	default:
		return domain.ReasonExtraction
	}
}
