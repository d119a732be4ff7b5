package pipeline_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"propveris/internal/domain"
	"propveris/internal/pipeline"
	"propveris/internal/port"
	"propveris/internal/reasoner"
	"propveris/mocks"
)

func extractedFields() []domain.ExtractedField {
	return []domain.ExtractedField{
		{Name: "landlord", Role: "party_name", Text: "Suresh Kumar", Confidence: 0.95},
		{Name: "tenant", Role: "party_name", Text: "Anita Desai", Confidence: 0.91},
		{Name: "rent", Role: "amount", Text: "Rs. 25,000", Confidence: 0.9},
	}
}

func verifyInput() pipeline.VerifyInput {
	return pipeline.VerifyInput{
		DocumentType: domain.DocTypeRentAgreement,
		FileBytes:    []byte{0xFF, 0xD8, 0xFF, 0xE0},
		ContentType:  "image/jpeg",
	}
}

func TestPipeline_Verify_UnknownDocumentType(t *testing.T) {
	extractor := new(mocks.MockFieldExtractor)
	backend := new(mocks.MockReasoningBackend)
	p := pipeline.New(extractor, reasoner.NewEngine(backend), 0)

	_, err := p.Verify(context.Background(), pipeline.VerifyInput{DocumentType: "mortgage"})
	assert.ErrorIs(t, err, domain.ErrUnknownDocumentType)
	extractor.AssertNotCalled(t, "Extract")
}

func TestPipeline_Verify_HappyPath(t *testing.T) {
	extractor := new(mocks.MockFieldExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractedFields(), nil).Once()

	backend := new(mocks.MockReasoningBackend)
	backend.On("Reason", mock.Anything, mock.MatchedBy(func(in port.ReasonInput) bool {
		// The prompt carries resolved values and sentinels alike.
		return strings.Contains(in.Prompt, "Suresh Kumar") && strings.Contains(in.Prompt, domain.NotFound)
	})).Return(&port.ReasonOutput{
		Text:  `{"benefits":[{"label":"Parties identified"}],"risks":[{"label":"No deposit clause"}]}`,
		Model: "llama3.2:3b",
	}, nil).Once()

	p := pipeline.New(extractor, reasoner.NewEngine(backend), 0)
	record, err := p.Verify(context.Background(), verifyInput())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, record.Status)
	assert.Equal(t, "Suresh Kumar", record.ExtractedFields["landlord"].String())
	assert.Equal(t, domain.NotFound, record.ExtractedFields["security_deposit"].String())
	assert.Len(t, record.Benefits, 1)
	assert.Len(t, record.Risks, 1)
	assert.Equal(t, domain.ParseStructured, record.ParseMethod)
	extractor.AssertExpectations(t)
	backend.AssertExpectations(t)
}

func TestPipeline_Verify_ExtractionFailureSkipsReasoning(t *testing.T) {
	extractor := new(mocks.MockFieldExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: status 500", domain.ErrExtractionFailed)).Once()

	backend := new(mocks.MockReasoningBackend)

	p := pipeline.New(extractor, reasoner.NewEngine(backend), 0)
	record, err := p.Verify(context.Background(), verifyInput())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, domain.ReasonExtraction, record.FailureReason)
	assert.NotEmpty(t, record.FailureDetail)
	// The record still covers the whole schema with sentinels.
	assert.Equal(t, domain.NotFound, record.ExtractedFields["landlord"].String())
	backend.AssertNotCalled(t, "Reason")
}

func TestPipeline_Verify_UnsupportedMediaFailure(t *testing.T) {
	extractor := new(mocks.MockFieldExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: gif payload", domain.ErrUnsupportedMedia)).Once()

	p := pipeline.New(extractor, reasoner.NewEngine(new(mocks.MockReasoningBackend)), 0)
	record, err := p.Verify(context.Background(), verifyInput())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, domain.ReasonUnsupportedMedia, record.FailureReason)
}

func TestPipeline_Verify_ReasoningFailureKeepsFields(t *testing.T) {
	extractor := new(mocks.MockFieldExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(extractedFields(), nil).Once()

	backend := new(mocks.MockReasoningBackend)
	backend.On("Reason", mock.Anything, mock.Anything).
		Return(&port.ReasonOutput{Text: "no markers at all"}, nil).Once()

	p := pipeline.New(extractor, reasoner.NewEngine(backend), 0)
	record, err := p.Verify(context.Background(), verifyInput())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, domain.ReasonReasoningParse, record.FailureReason)
	// Extracted fields survive the reasoning failure.
	assert.Equal(t, "Suresh Kumar", record.ExtractedFields["landlord"].String())
	assert.Empty(t, record.Benefits)
	assert.Empty(t, record.Risks)
}

func TestPipeline_Verify_CoercionFailureIsPartialFailure(t *testing.T) {
	fields := []domain.ExtractedField{
		{Name: "landlord", Role: "party_name", Text: "Suresh Kumar", Confidence: 0.95},
		{Name: "rent", Role: "amount", Text: "twenty five thousand", Confidence: 0.9},
	}
	extractor := new(mocks.MockFieldExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).Return(fields, nil).Once()

	backend := new(mocks.MockReasoningBackend)
	backend.On("Reason", mock.Anything, mock.Anything).Return(&port.ReasonOutput{
		Text: `{"benefits":[],"risks":[{"label":"Rent amount unreadable"}]}`,
	}, nil).Once()

	p := pipeline.New(extractor, reasoner.NewEngine(backend), 0)
	record, err := p.Verify(context.Background(), verifyInput())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPartialFailure, record.Status)
	require.Len(t, record.DegradedFields, 1)
	assert.Equal(t, "rent_amount", record.DegradedFields[0].Field)
	assert.Equal(t, domain.NotFound, record.ExtractedFields["rent_amount"].String())
}

func TestPipeline_Verify_TimeoutReattributed(t *testing.T) {
	extractor := new(mocks.MockFieldExtractor)
	extractor.On("Extract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, fmt.Errorf("%w: request aborted", domain.ErrExtractionFailed)).Once()

	p := pipeline.New(extractor, reasoner.NewEngine(new(mocks.MockReasoningBackend)), 20*time.Millisecond)
	record, err := p.Verify(context.Background(), verifyInput())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Equal(t, domain.ReasonTimeout, record.FailureReason)
}
