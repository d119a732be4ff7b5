package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"propveris/internal/config"
	"propveris/internal/domain"
	"propveris/internal/pipeline"
	"propveris/internal/port"
)

// VerifyUploadInput is the DTO for submitting one document for
// verification.
type VerifyUploadInput struct {
	DocumentType domain.DocumentType
	FileName     string
	ContentType  string
	FileBytes    []byte
	SubmittedBy  string
}

// VerificationService defines the verification workflow contract.
type VerificationService interface {
	// Verify runs the pipeline synchronously and returns the record.
	Verify(ctx context.Context, input *VerifyUploadInput) (*domain.VerificationRecord, error)
	// Submit stores the upload and queues it for asynchronous
	// verification.
	Submit(ctx context.Context, input *VerifyUploadInput) (*domain.Verification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error)
	// GetDownloadURL returns a presigned link to the stored source
	// document of an asynchronously submitted verification.
	GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error)
	List(ctx context.Context, offset, limit int) ([]domain.Verification, int, error)
	// Delete removes a verification and its stored source document.
	Delete(ctx context.Context, id uuid.UUID) error
	// ProcessVerification runs the pipeline for a claimed queued
	// verification and stores the outcome. Called by the queue worker.
	ProcessVerification(ctx context.Context, v *domain.Verification, maxAttempts int)
}

type verificationService struct {
	pipe    *pipeline.Pipeline
	repo    port.VerificationRepository // nil disables persistence
	storage port.ObjectStorage
	s3cfg   *config.S3Config
}

// NewVerificationService creates a VerificationService. repo and
// storage may be nil for a stateless deployment; Submit then fails with
// ErrNotFound semantics handled at the handler layer.
func NewVerificationService(
	pipe *pipeline.Pipeline,
	repo port.VerificationRepository,
	storage port.ObjectStorage,
	s3cfg *config.S3Config,
) VerificationService {
	return &verificationService{
		pipe:    pipe,
		repo:    repo,
		storage: storage,
		s3cfg:   s3cfg,
	}
}

func (s *verificationService) Verify(ctx context.Context, input *VerifyUploadInput) (*domain.VerificationRecord, error) {
	if err := s.validateUpload(input); err != nil {
		return nil, err
	}

	record, err := s.pipe.Verify(ctx, pipeline.VerifyInput{
		DocumentType: input.DocumentType,
		FileBytes:    input.FileBytes,
		ContentType:  input.ContentType,
	})
	if err != nil {
		return nil, err
	}

	// Synchronous requests are recorded for history/export when a repo
	// is configured, but persistence failure never fails the request.
	if s.repo != nil {
		v := s.buildRow(input)
		v.QueueStatus = domain.QueueStatusCompleted
		v.Attempts = 1
		applyRecord(v, record)
		if err := s.repo.Create(ctx, v); err != nil {
			log.Printf("verificationService.Verify: failed to record result: %v", err)
		}
	}

	return record, nil
}

func (s *verificationService) Submit(ctx context.Context, input *VerifyUploadInput) (*domain.Verification, error) {
	if s.repo == nil || s.storage == nil {
		return nil, fmt.Errorf("async submission requires storage and database: %w", domain.ErrUploadFailed)
	}
	if err := s.validateUpload(input); err != nil {
		return nil, err
	}

	v := s.buildRow(input)
	v.S3Bucket = s.s3cfg.Bucket
	v.S3Key = fmt.Sprintf("verifications/%s/%s%s", v.DocumentType, v.ID, strings.ToLower(filepath.Ext(input.FileName)))

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      v.S3Bucket,
		Key:         v.S3Key,
		Body:        bytes.NewReader(input.FileBytes),
		ContentType: input.ContentType,
		Size:        int64(len(input.FileBytes)),
		Metadata: map[string]string{
			"verification-id": v.ID.String(),
			"document-type":   string(v.DocumentType),
			"submitted-by":    input.SubmittedBy,
		},
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	v.QueueStatus = domain.QueueStatusQueued
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *verificationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Verification, error) {
	if s.repo == nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *verificationService) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	if s.repo == nil || s.storage == nil {
		return "", domain.ErrNotFound
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	// Synchronous verifications are recorded without a stored file.
	if v.S3Key == "" {
		return "", domain.ErrNotFound
	}
	return s.storage.GetPresignedURL(ctx, v.S3Bucket, v.S3Key, s.s3cfg.PresignExpiry)
}

func (s *verificationService) List(ctx context.Context, offset, limit int) ([]domain.Verification, int, error) {
	if s.repo == nil {
		return nil, 0, nil
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *verificationService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.repo == nil {
		return domain.ErrNotFound
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if v.S3Key != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, v.S3Bucket, v.S3Key); err != nil {
			log.Printf("verificationService.Delete: failed to delete %s from storage: %v", v.S3Key, err)
			return fmt.Errorf("deleting from storage: %w", err)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *verificationService) ProcessVerification(ctx context.Context, v *domain.Verification, maxAttempts int) {
	// Each claim consumes one attempt from the retry budget; the bumped
	// count is persisted with the outcome below.
	v.Attempts++

	fileBytes, err := s.storage.Download(ctx, v.S3Bucket, v.S3Key)
	if err != nil {
		s.fail(ctx, v, domain.ReasonExtraction, fmt.Sprintf("downloading file: %v", err))
		return
	}

	record, err := s.pipe.Verify(ctx, pipeline.VerifyInput{
		DocumentType: v.DocumentType,
		FileBytes:    fileBytes,
		ContentType:  v.ContentType,
	})
	if err != nil {
		// Unknown document type on a persisted row is a programming
		// error, not a retryable condition.
		s.fail(ctx, v, domain.ReasonExtraction, err.Error())
		return
	}

	if record.Status == domain.StatusFailed && retryable(record.FailureReason) && v.Attempts < maxAttempts {
		retryAt := time.Now().UTC().Add(time.Duration(v.Attempts) * time.Minute)
		v.QueueStatus = domain.QueueStatusQueued
		v.RetryAfter = &retryAt
		v.FailureReason = record.FailureReason
		v.FailureDetail = record.FailureDetail
		if err := s.repo.UpdateResult(ctx, v); err != nil {
			log.Printf("verificationService.ProcessVerification: failed to requeue %s: %v", v.ID, err)
			return
		}
		log.Printf("verificationService.ProcessVerification: %s queued for retry after %s (attempt %d)",
			v.ID, retryAt.Format(time.RFC3339), v.Attempts)
		return
	}

	now := time.Now().UTC()
	v.QueueStatus = domain.QueueStatusCompleted
	v.RetryAfter = nil
	v.CompletedAt = &now
	applyRecord(v, record)

	if err := s.repo.UpdateResult(ctx, v); err != nil {
		log.Printf("verificationService.ProcessVerification: failed to save results for %s: %v", v.ID, err)
		return
	}
	log.Printf("verificationService.ProcessVerification: verification %s completed with status %s", v.ID, v.Status)
}

// retryable reports whether a failure reason can clear on its own.
// Unsupported media, extraction contract errors, and unparseable
// verdicts will fail identically on every attempt.
func retryable(reason domain.FailureReason) bool {
	return reason == domain.ReasonReasoningBackend || reason == domain.ReasonTimeout
}

func (s *verificationService) validateUpload(input *VerifyUploadInput) error {
	if !input.DocumentType.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownDocumentType, input.DocumentType)
	}
	maxBytes := s.s3cfg.MaxFileSizeMB * 1024 * 1024
	if maxBytes > 0 && int64(len(input.FileBytes)) > maxBytes {
		return domain.ErrFileTooLarge
	}
	if input.ContentType == "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(input.FileName)), ".")
		kind, ok := domain.AllowedExtensions[ext]
		if !ok {
			return fmt.Errorf("%w: extension %q", domain.ErrUnsupportedMedia, ext)
		}
		input.ContentType = domain.AllowedMediaKinds[kind]
	} else if _, ok := domain.AllowedContentTypes[input.ContentType]; !ok {
		return fmt.Errorf("%w: content type %q", domain.ErrUnsupportedMedia, input.ContentType)
	}
	return nil
}

func (s *verificationService) buildRow(input *VerifyUploadInput) *domain.Verification {
	return &domain.Verification{
		ID:           uuid.New(),
		DocumentType: input.DocumentType,
		FileName:     input.FileName,
		ContentType:  input.ContentType,
		SizeBytes:    int64(len(input.FileBytes)),
		SubmittedBy:  input.SubmittedBy,
	}
}

func (s *verificationService) fail(ctx context.Context, v *domain.Verification, reason domain.FailureReason, detail string) {
	log.Printf("verificationService: verification %s failed: %s", v.ID, detail)
	now := time.Now().UTC()
	v.QueueStatus = domain.QueueStatusCompleted
	v.Status = domain.StatusFailed
	v.FailureReason = reason
	v.FailureDetail = detail
	v.RetryAfter = nil
	v.CompletedAt = &now
	if err := s.repo.UpdateResult(ctx, v); err != nil {
		log.Printf("verificationService.fail: failed to update status for %s: %v", v.ID, err)
	}
}

// applyRecord copies a pipeline record onto the persisted row.
func applyRecord(v *domain.Verification, record *domain.VerificationRecord) {
	v.Status = record.Status
	v.FailureReason = record.FailureReason
	v.FailureDetail = record.FailureDetail
	v.Model = record.Model

	if fieldsJSON, err := json.Marshal(record.ExtractedFields); err == nil {
		v.Fields = fieldsJSON
	}
	verdict := map[string]interface{}{
		"benefits":     record.Benefits,
		"risks":        record.Risks,
		"parse_method": record.ParseMethod,
	}
	if len(record.DegradedFields) > 0 {
		verdict["degraded_fields"] = record.DegradedFields
	}
	if verdictJSON, err := json.Marshal(verdict); err == nil {
		v.Verdict = verdictJSON
	}
}
