package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Location pins an extracted text span to a page and bounding region.
// Coordinates are normalized to [0,1] relative to the page.
type Location struct {
	Page int     `json:"page"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// ExtractedField is a single span produced by the visual-document model:
// raw text plus its predicted semantic role and location.
type ExtractedField struct {
	Name       string   `json:"name"`
	Role       string   `json:"role"`
	Text       string   `json:"text"`
	Location   Location `json:"location"`
	Confidence float64  `json:"confidence"`
}

// NotFound is the sentinel value for a schema field that could not be
// resolved from the extractor output. It is meaningful output, not an
// error: a missing field is itself a risk signal downstream.
const NotFound = "not found"

// FieldValue is a normalized field: a typed scalar coerced from raw
// extractor text, or the "not found" sentinel.
type FieldValue struct {
	Kind  FieldKind
	Found bool
	// Text holds the canonical string form: raw text for text fields,
	// ISO date (2006-01-02) for dates, "<currency><amount>" for money.
	Text   string
	Date   time.Time
	Amount float64
}

// NotFoundValue returns the sentinel value for an unresolved field.
func NotFoundValue(kind FieldKind) FieldValue {
	return FieldValue{Kind: kind, Found: false}
}

// TextValue returns a found free-text field value.
func TextValue(text string) FieldValue {
	return FieldValue{Kind: FieldKindText, Found: true, Text: text}
}

// DateValue returns a found date field value.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: FieldKindDate, Found: true, Text: t.Format("2006-01-02"), Date: t}
}

// MoneyValue returns a found money field value with its canonical text.
func MoneyValue(text string, amount float64) FieldValue {
	return FieldValue{Kind: FieldKindMoney, Found: true, Text: text, Amount: amount}
}

// String returns the external representation used in the API contract:
// the canonical text, or the "not found" sentinel.
func (v FieldValue) String() string {
	if !v.Found {
		return NotFound
	}
	return v.Text
}

// MarshalJSON serializes the field as its external string form, so the
// extracted_fields mapping in the API is name -> value (with sentinels).
func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON restores a field value from its external string form.
// Typed scalar detail is not round-tripped; persisted records only need
// the display contract.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == NotFound {
		*v = FieldValue{Kind: FieldKindText, Found: false}
		return nil
	}
	*v = FieldValue{Kind: FieldKindText, Found: true, Text: s}
	return nil
}

// NormalizedRecord maps every field name in a document type's schema to
// a value. Invariant: each schema field appears exactly once, even when
// unresolved.
type NormalizedRecord struct {
	DocumentType DocumentType          `json:"document_type"`
	Fields       map[string]FieldValue `json:"fields"`
}

// FieldNote records a non-fatal, field-level degradation (for example a
// value that matched but failed type coercion).
type FieldNote struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// VerdictItem is one classified finding from the reasoning backend.
type VerdictItem struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation"`
}

// ReasoningVerdict holds the parsed benefits and risks in the order the
// reasoning model emitted them.
type ReasoningVerdict struct {
	Benefits []VerdictItem `json:"benefits"`
	Risks    []VerdictItem `json:"risks"`
	Method   ParseMethod   `json:"parse_method"`
	Model    string        `json:"model,omitempty"`
}

// VerificationRecord is the terminal artifact of the pipeline. It is
// created once per request by the assembler and immutable afterwards;
// failure state is carried as data, never raised past the pipeline
// boundary.
type VerificationRecord struct {
	DocumentType    DocumentType          `json:"document_type"`
	ExtractedFields map[string]FieldValue `json:"extracted_fields"`
	Benefits        []VerdictItem         `json:"benefits"`
	Risks           []VerdictItem         `json:"risks"`
	Status          VerificationStatus    `json:"status"`
	FailureReason   FailureReason         `json:"failure_reason,omitempty"`
	FailureDetail   string                `json:"failure_detail,omitempty"`
	DegradedFields  []FieldNote           `json:"degraded_fields,omitempty"`
	ParseMethod     ParseMethod           `json:"parse_method,omitempty"`
	Model           string                `json:"model,omitempty"`
}

// Verification is a persisted verification request: upload coordinates,
// queue lifecycle, and the embedded record once the pipeline has run.
type Verification struct {
	ID            uuid.UUID          `db:"id" json:"id"`
	DocumentType  DocumentType       `db:"document_type" json:"document_type"`
	FileName      string             `db:"file_name" json:"file_name"`
	ContentType   string             `db:"content_type" json:"content_type"`
	SizeBytes     int64              `db:"size_bytes" json:"size_bytes"`
	S3Bucket      string             `db:"s3_bucket" json:"-"`
	S3Key         string             `db:"s3_key" json:"-"`
	QueueStatus   QueueStatus        `db:"queue_status" json:"queue_status"`
	Attempts      int                `db:"attempts" json:"attempts"`
	RetryAfter    *time.Time         `db:"retry_after" json:"retry_after,omitempty"`
	Status        VerificationStatus `db:"status" json:"status,omitempty"`
	FailureReason FailureReason      `db:"failure_reason" json:"failure_reason,omitempty"`
	FailureDetail string             `db:"failure_detail" json:"failure_detail,omitempty"`
	Fields        json.RawMessage    `db:"fields" json:"extracted_fields,omitempty"`
	Verdict       json.RawMessage    `db:"verdict" json:"verdict,omitempty"`
	Model         string             `db:"model" json:"model,omitempty"`
	SubmittedBy   string             `db:"submitted_by" json:"submitted_by,omitempty"`
	CompletedAt   *time.Time         `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}
