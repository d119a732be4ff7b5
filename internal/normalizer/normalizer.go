// Package normalizer maps raw extractor output onto the fixed
// per-document-type schema. It is pure: no I/O, no shared state, and a
// deterministic result for a given input.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"propveris/internal/domain"
	"propveris/internal/schema"
)

// Normalize selects the best extracted candidate for every field the
// document type's schema requires and coerces it to its semantic type.
// Unresolved fields get the "not found" sentinel; that is meaningful
// output, not an error. Coercion failures also downgrade to "not found"
// but additionally produce a FieldNote, since a value that was present
// yet unusable is a degradation the caller should surface.
func Normalize(fields []domain.ExtractedField, docType domain.DocumentType) (domain.NormalizedRecord, []domain.FieldNote, error) {
	s := schema.ForType(docType)
	if s == nil {
		return domain.NormalizedRecord{}, nil, domain.ErrUnknownDocumentType
	}

	record := domain.NormalizedRecord{
		DocumentType: docType,
		Fields:       make(map[string]domain.FieldValue, len(s.Fields)),
	}
	var notes []domain.FieldNote

	for _, spec := range s.Fields {
		candidate := selectCandidate(fields, &spec)
		if candidate == nil {
			record.Fields[spec.Name] = domain.NotFoundValue(spec.Kind)
			continue
		}

		value, err := coerce(candidate.Text, spec.Kind)
		if err != nil {
			// A malformed field must not abort the whole request.
			record.Fields[spec.Name] = domain.NotFoundValue(spec.Kind)
			notes = append(notes, domain.FieldNote{
				Field:  spec.Name,
				Reason: err.Error(),
			})
			continue
		}
		record.Fields[spec.Name] = value
	}

	return record, notes, nil
}

// selectCandidate picks the best matching span for a field spec: exact
// or fuzzy name match beats role-only match, highest confidence wins
// within a tier, and ties break on earliest (page, y, x) order so the
// result is reproducible.
func selectCandidate(fields []domain.ExtractedField, spec *schema.FieldSpec) *domain.ExtractedField {
	var best *domain.ExtractedField
	bestTier := 0

	for i := range fields {
		f := &fields[i]
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		tier := matchTier(f, spec)
		if tier == 0 {
			continue
		}
		if best == nil || tier > bestTier ||
			(tier == bestTier && f.Confidence > best.Confidence) ||
			(tier == bestTier && f.Confidence == best.Confidence && earlier(f.Location, best.Location)) {
			best = f
			bestTier = tier
		}
	}
	return best
}

// matchTier returns 2 for a name/alias match, 1 for a role match, 0 for
// no match.
func matchTier(f *domain.ExtractedField, spec *schema.FieldSpec) int {
	name := canonical(f.Name)
	if name != "" {
		if name == canonical(spec.Name) {
			return 2
		}
		for _, alias := range spec.Aliases {
			if name == canonical(alias) {
				return 2
			}
		}
	}
	for _, role := range spec.Roles {
		if f.Role == role {
			return 1
		}
	}
	return 0
}

func canonical(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func earlier(a, b domain.Location) bool {
	if a.Page != b.Page {
		return a.Page < b.Page
	}
	if a.Y0 != b.Y0 {
		return a.Y0 < b.Y0
	}
	return a.X0 < b.X0
}

// dateLayouts are tried in order when coercing a date field.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02.01.2006",
}

func coerce(raw string, kind domain.FieldKind) (domain.FieldValue, error) {
	text := strings.TrimSpace(raw)

	switch kind {
	case domain.FieldKindText:
		return domain.TextValue(text), nil

	case domain.FieldKindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return domain.DateValue(t), nil
			}
		}
		return domain.FieldValue{}, fmt.Errorf("unparseable date %q", text)

	case domain.FieldKindMoney:
		amount, err := parseMoney(text)
		if err != nil {
			return domain.FieldValue{}, err
		}
		return domain.MoneyValue(text, amount), nil

	default:
		return domain.FieldValue{}, fmt.Errorf("unknown field kind %q", kind)
	}
}

// currencyPrefixes are stripped before parsing a money amount.
var currencyPrefixes = []string{"rs.", "rs", "inr", "usd", "₹", "$", "€", "£"}

func parseMoney(text string) (float64, error) {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	for _, p := range currencyPrefixes {
		cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, p))
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	// Drop trailing qualifiers like "per month".
	if i := strings.IndexByte(cleaned, ' '); i > 0 {
		cleaned = cleaned[:i]
	}
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount %q", text)
	}
	if amount < 0 {
		return 0, fmt.Errorf("negative amount %q", text)
	}
	return amount, nil
}
