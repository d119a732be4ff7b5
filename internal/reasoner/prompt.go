package reasoner

import (
	"strings"

	"propveris/internal/domain"
	"propveris/internal/schema"
)

// BuildChecklistPrompt renders the reasoning request for one normalized
// record: the document type's fixed legal checklist paired with every
// extracted field value, unresolved fields included. The backend is
// asked for a machine-readable verdict but the parser tolerates prose.
func BuildChecklistPrompt(record domain.NormalizedRecord) string {
	s := schema.ForType(record.DocumentType)
	if s == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("You are a property law assistant. Assess the following ")
	b.WriteString(string(record.DocumentType))
	b.WriteString(" document based on its extracted fields.\n\nExtracted fields:\n")

	// Schema declaration order, so the same record always renders the
	// same prompt.
	for _, spec := range s.Fields {
		b.WriteString("- ")
		b.WriteString(spec.Name)
		b.WriteString(": ")
		b.WriteString(record.Fields[spec.Name].String())
		b.WriteString("\n")
	}

	b.WriteString("\nEvaluate against this checklist:\n")
	for _, item := range s.Checklist {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}

	b.WriteString(`
List every positive, legally compliant aspect as a benefit and every missing clause, missing field, or legal concern as a risk. A field reported as "not found" is a risk.

Respond with ONLY a JSON object of the form:
{"benefits":[{"label":"","explanation":""}],"risks":[{"label":"","explanation":""}]}

No markdown, no code fences. If you cannot produce JSON, use plain sections headed "BENEFITS:" and "RISKS:" with one item per line.`)

	return b.String()
}
