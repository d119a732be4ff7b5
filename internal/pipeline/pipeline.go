// Package pipeline runs the document verification pipeline: raw bytes
// through field extraction, normalization, reasoning, and assembly into
// a VerificationRecord. A Pipeline instance holds explicit client
// handles and no cross-request state, so instances run safely in
// parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"propveris/internal/domain"
	"propveris/internal/normalizer"
	"propveris/internal/port"
	"propveris/internal/reasoner"
)

// VerifyInput is one document verification request.
type VerifyInput struct {
	DocumentType domain.DocumentType
	FileBytes    []byte
	ContentType  string
}

// Pipeline wires the pipeline stages for one deployment.
type Pipeline struct {
	extractor port.FieldExtractor
	engine    *reasoner.Engine
	timeout   time.Duration
}

// New creates a Pipeline. timeout bounds one whole request across all
// four stages; zero disables the deadline.
func New(extractor port.FieldExtractor, engine *reasoner.Engine, timeout time.Duration) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		engine:    engine,
		timeout:   timeout,
	}
}

// Verify runs one document through the pipeline. It always returns a
// record when the document type is known: stage failures become record
// status, never an error. The returned error is reserved for the
// programming-contract violation of an unknown document type.
func (p *Pipeline) Verify(ctx context.Context, input VerifyInput) (*domain.VerificationRecord, error) {
	if !input.DocumentType.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, input.DocumentType)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	fields, err := p.extractor.Extract(ctx, port.ExtractInput{
		FileBytes:    input.FileBytes,
		ContentType:  input.ContentType,
		DocumentType: input.DocumentType,
	})
	if err != nil {
		// Extraction broke: downstream stages cannot distinguish
		// "field absent" from "extraction broken", so no reasoning
		// call is attempted.
		return Assemble(input.DocumentType, domain.NormalizedRecord{}, nil, p.deadline(ctx, err), nil)
	}

	record, notes, err := normalizer.Normalize(fields, input.DocumentType)
	if err != nil {
		return nil, err
	}

	verdict, err := p.engine.Assess(ctx, record)
	if err != nil {
		return Assemble(input.DocumentType, record, nil, p.deadline(ctx, err), notes)
	}

	return Assemble(input.DocumentType, record, verdict, nil, notes)
}

// deadline reattributes a stage error to the request deadline when the
// per-request timeout is what actually killed the stage.
func (p *Pipeline) deadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
