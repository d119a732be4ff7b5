package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUnknownDocumentType = errors.New("unknown document type")
	ErrUnsupportedMedia    = errors.New("unsupported media kind")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
	ErrExtractionFailed    = errors.New("field extraction failed")
	ErrReasoningParse      = errors.New("reasoning response yielded no classifiable verdict")
	ErrReasoningBackend    = errors.New("reasoning backend unavailable")
	ErrTimeout             = errors.New("verification deadline exceeded")
)
