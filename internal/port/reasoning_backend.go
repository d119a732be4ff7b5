package port

import "context"

// ReasonInput carries a fully rendered reasoning prompt to the
// language-model backend.
type ReasonInput struct {
	Prompt string
}

// ReasonOutput is the backend's free-form response. The reasoning
// engine, not the backend client, is responsible for parsing it into a
// verdict.
type ReasonOutput struct {
	Text  string
	Model string
}

// ReasoningBackend abstracts the external language-model service that
// evaluates normalized fields against a legal checklist.
type ReasoningBackend interface {
	Reason(ctx context.Context, input ReasonInput) (*ReasonOutput, error)
}
