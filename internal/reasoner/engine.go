package reasoner

import (
	"context"
	"fmt"
	"log"

	"propveris/internal/domain"
	"propveris/internal/port"
)

// Engine drives one reasoning pass: prompt construction, the backend
// call with a single retry on transient failure, and verdict parsing.
// Each pipeline instance holds its own Engine; there is no shared
// mutable state between requests.
type Engine struct {
	backend port.ReasoningBackend
}

// NewEngine creates a reasoning engine over a backend.
func NewEngine(backend port.ReasoningBackend) *Engine {
	return &Engine{backend: backend}
}

// Assess evaluates a normalized record against its document type's
// checklist and parses the backend response into a verdict.
func (e *Engine) Assess(ctx context.Context, record domain.NormalizedRecord) (*domain.ReasoningVerdict, error) {
	prompt := BuildChecklistPrompt(record)
	if prompt == "" {
		return nil, domain.ErrUnknownDocumentType
	}

	out, err := e.backend.Reason(ctx, port.ReasonInput{Prompt: prompt})
	if err != nil && IsTransient(err) && ctx.Err() == nil {
		log.Printf("reasoner.Engine: transient backend failure, retrying once: %v", err)
		out, err = e.backend.Reason(ctx, port.ReasonInput{Prompt: prompt})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReasoningBackend, err)
	}

	verdict, err := ParseVerdict(out.Text)
	if err != nil {
		return nil, err
	}
	verdict.Model = out.Model
	return verdict, nil
}
