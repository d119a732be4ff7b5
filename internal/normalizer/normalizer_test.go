package normalizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propveris/internal/domain"
	"propveris/internal/normalizer"
	"propveris/internal/schema"
)

func span(name, role, text string, confidence float64) domain.ExtractedField {
	return domain.ExtractedField{
		Name:       name,
		Role:       role,
		Text:       text,
		Confidence: confidence,
	}
}

func TestNormalize_UnknownDocumentType(t *testing.T) {
	_, _, err := normalizer.Normalize(nil, domain.DocumentType("mortgage"))
	assert.ErrorIs(t, err, domain.ErrUnknownDocumentType)
}

func TestNormalize_EmptyInputProducesFullSchema(t *testing.T) {
	for docType := range domain.KnownDocumentTypes {
		dt := domain.DocumentType(docType)
		record, notes, err := normalizer.Normalize(nil, dt)
		require.NoError(t, err)
		assert.Empty(t, notes)

		s := schema.ForType(dt)
		require.NotNil(t, s)
		assert.Len(t, record.Fields, len(s.Fields))
		for _, name := range s.FieldNames() {
			value, ok := record.Fields[name]
			require.True(t, ok, "missing field %s for %s", name, docType)
			assert.Equal(t, domain.NotFound, value.String())
		}
	}
}

func TestNormalize_RentAgreement(t *testing.T) {
	fields := []domain.ExtractedField{
		span("landlord", "party_name", "Suresh Kumar", 0.95),
		span("lessee", "party_name", "Anita Desai", 0.91),
		span("rent", "amount", "Rs. 25,000 per month", 0.88),
		span("agreement_date", "date", "15/01/2024", 0.9),
	}

	record, notes, err := normalizer.Normalize(fields, domain.DocTypeRentAgreement)
	require.NoError(t, err)
	assert.Empty(t, notes)

	assert.Equal(t, "Suresh Kumar", record.Fields["landlord"].String())
	assert.Equal(t, "Anita Desai", record.Fields["tenant"].String())

	rent := record.Fields["rent_amount"]
	assert.True(t, rent.Found)
	assert.Equal(t, 25000.0, rent.Amount)

	date := record.Fields["agreement_date"]
	assert.True(t, date.Found)
	assert.Equal(t, "2024-01-15", date.String())

	// Fields with no matching span stay at the sentinel.
	assert.Equal(t, domain.NotFound, record.Fields["security_deposit"].String())
}

func TestNormalize_NameMatchBeatsRoleMatch(t *testing.T) {
	fields := []domain.ExtractedField{
		span("", "party_name", "Role Only Candidate", 0.99),
		span("owner", "party_name", "Named Candidate", 0.50),
	}

	record, _, err := normalizer.Normalize(fields, domain.DocTypeTitleDeed)
	require.NoError(t, err)
	assert.Equal(t, "Named Candidate", record.Fields["owner"].String())
}

func TestNormalize_HighestConfidenceWinsWithinTier(t *testing.T) {
	fields := []domain.ExtractedField{
		span("owner", "party_name", "Low Confidence", 0.4),
		span("owner", "party_name", "High Confidence", 0.9),
	}

	record, _, err := normalizer.Normalize(fields, domain.DocTypeTitleDeed)
	require.NoError(t, err)
	assert.Equal(t, "High Confidence", record.Fields["owner"].String())
}

func TestNormalize_TieBreaksOnDocumentOrder(t *testing.T) {
	first := span("owner", "party_name", "Page One", 0.8)
	first.Location = domain.Location{Page: 1, Y0: 0.1}
	second := span("owner", "party_name", "Page Two", 0.8)
	second.Location = domain.Location{Page: 2, Y0: 0.1}

	// Input order must not matter.
	record, _, err := normalizer.Normalize([]domain.ExtractedField{second, first}, domain.DocTypeTitleDeed)
	require.NoError(t, err)
	assert.Equal(t, "Page One", record.Fields["owner"].String())
}

func TestNormalize_CoercionFailureProducesNote(t *testing.T) {
	fields := []domain.ExtractedField{
		span("rent", "amount", "twenty five thousand", 0.9),
	}

	record, notes, err := normalizer.Normalize(fields, domain.DocTypeRentAgreement)
	require.NoError(t, err)

	assert.Equal(t, domain.NotFound, record.Fields["rent_amount"].String())
	require.Len(t, notes, 1)
	assert.Equal(t, "rent_amount", notes[0].Field)
	assert.Contains(t, notes[0].Reason, "twenty five thousand")
}

func TestNormalize_BlankSpansIgnored(t *testing.T) {
	fields := []domain.ExtractedField{
		span("owner", "party_name", "   ", 0.99),
	}

	record, notes, err := normalizer.Normalize(fields, domain.DocTypeTitleDeed)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, domain.NotFound, record.Fields["owner"].String())
}

func TestNormalize_DateLayouts(t *testing.T) {
	cases := map[string]string{
		"2024-03-01":    "2024-03-01",
		"01/03/2024":    "2024-03-01",
		"1 March 2024":  "2024-03-01",
		"March 1, 2024": "2024-03-01",
		"01.03.2024":    "2024-03-01",
	}
	for raw, want := range cases {
		fields := []domain.ExtractedField{span("issue_date", "date", raw, 0.9)}
		record, notes, err := normalizer.Normalize(fields, domain.DocTypeNOC)
		require.NoError(t, err)
		assert.Empty(t, notes, "layout %q", raw)
		assert.Equal(t, want, record.Fields["issue_date"].String(), "layout %q", raw)
	}
}

func TestNormalize_MoneyFormats(t *testing.T) {
	cases := map[string]float64{
		"Rs. 25,000":          25000,
		"₹1,50,000":           150000,
		"INR 5000":            5000,
		"12000.50":            12000.50,
		"$2,000 per month":    2000,
		"rs 30000 refundable": 30000,
	}
	for raw, want := range cases {
		fields := []domain.ExtractedField{span("consideration", "amount", raw, 0.9)}
		record, notes, err := normalizer.Normalize(fields, domain.DocTypeTitleDeed)
		require.NoError(t, err)
		require.Empty(t, notes, "amount %q", raw)
		assert.Equal(t, want, record.Fields["consideration_amount"].Amount, "amount %q", raw)
	}
}

func TestNormalize_NegativeAmountRejected(t *testing.T) {
	fields := []domain.ExtractedField{span("rent", "amount", "-500", 0.9)}

	record, notes, err := normalizer.Normalize(fields, domain.DocTypeRentAgreement)
	require.NoError(t, err)
	assert.Equal(t, domain.NotFound, record.Fields["rent_amount"].String())
	require.Len(t, notes, 1)
	assert.Equal(t, "rent_amount", notes[0].Field)
}
