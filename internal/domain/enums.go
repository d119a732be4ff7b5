package domain

// DocumentType identifies the kind of property document being verified.
// It determines the extraction schema and the reasoning checklist.
type DocumentType string

const (
	DocTypeRentAgreement DocumentType = "rent_agreement"
	DocTypeTitleDeed     DocumentType = "title_deed"
	DocTypeNOC           DocumentType = "noc"
)

// KnownDocumentTypes maps external document type labels to DocumentType.
var KnownDocumentTypes = map[string]DocumentType{
	"rent_agreement": DocTypeRentAgreement,
	"title_deed":     DocTypeTitleDeed,
	"noc":            DocTypeNOC,
}

// IsValid reports whether the document type is one of the supported kinds.
func (t DocumentType) IsValid() bool {
	_, ok := KnownDocumentTypes[string(t)]
	return ok
}

// MediaKind represents the allowed media kinds for upload.
type MediaKind string

const (
	MediaPDF MediaKind = "pdf"
	MediaJPG MediaKind = "jpg"
	MediaPNG MediaKind = "png"
)

// AllowedMediaKinds maps MediaKind to its MIME content type.
var AllowedMediaKinds = map[MediaKind]string{
	MediaPDF: "application/pdf",
	MediaJPG: "image/jpeg",
	MediaPNG: "image/png",
}

// AllowedContentTypes maps MIME content types back to MediaKind.
var AllowedContentTypes = map[string]MediaKind{
	"application/pdf": MediaPDF,
	"image/jpeg":      MediaJPG,
	"image/png":       MediaPNG,
}

// AllowedExtensions maps file extensions (without dot) to MediaKind.
var AllowedExtensions = map[string]MediaKind{
	"pdf":  MediaPDF,
	"jpg":  MediaJPG,
	"jpeg": MediaJPG,
	"png":  MediaPNG,
}

// VerificationStatus represents the terminal processing status of a
// verification request.
type VerificationStatus string

const (
	StatusSuccess        VerificationStatus = "success"
	StatusPartialFailure VerificationStatus = "partial_failure"
	StatusFailed         VerificationStatus = "failed"
)

// QueueStatus represents the lifecycle of an asynchronously submitted
// verification while it waits for, or moves through, the pipeline.
type QueueStatus string

const (
	QueueStatusQueued     QueueStatus = "queued"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
)

// FailureReason classifies why a verification ended with status failed.
type FailureReason string

const (
	ReasonNone             FailureReason = ""
	ReasonUnsupportedMedia FailureReason = "unsupported_media"
	ReasonExtraction       FailureReason = "extraction_error"
	ReasonReasoningParse   FailureReason = "reasoning_parse_error"
	ReasonReasoningBackend FailureReason = "reasoning_backend_error"
	ReasonTimeout          FailureReason = "timeout"
)

// ParseMethod tags how a reasoning verdict was recovered from the
// backend's free-form response.
type ParseMethod string

const (
	ParseStructured  ParseMethod = "structured"
	ParseHeuristic   ParseMethod = "heuristic"
	ParseUnparseable ParseMethod = "unparseable"
)

// FieldKind is the semantic type a normalized field value is coerced to.
type FieldKind string

const (
	FieldKindText  FieldKind = "text"
	FieldKindDate  FieldKind = "date"
	FieldKindMoney FieldKind = "money"
)
