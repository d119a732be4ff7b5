package reasoner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"propveris/internal/domain"
)

// verdictSchema is the contract the structured parse path holds the
// backend to. Both lists must be present; items need a label.
const verdictSchema = `{
	"type": "object",
	"required": ["benefits", "risks"],
	"properties": {
		"benefits": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["label"],
				"properties": {
					"label": {"type": "string"},
					"explanation": {"type": "string"}
				}
			}
		},
		"risks": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["label"],
				"properties": {
					"label": {"type": "string"},
					"explanation": {"type": "string"}
				}
			}
		}
	}
}`

var compiledVerdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchema)

// ParseVerdict turns a backend's free-form response into a
// ReasoningVerdict. It first attempts strict structured parsing
// (a JSON object validated against the verdict contract) and falls back
// to heuristic section extraction. If neither strategy classifies a
// single item the parse fails with domain.ErrReasoningParse: an empty
// verdict is indistinguishable from "no concerns" and must not be
// fabricated.
func ParseVerdict(text string) (*domain.ReasoningVerdict, error) {
	if v, ok := parseStructured(text); ok {
		return v, nil
	}
	if v, ok := parseHeuristic(text); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: no benefit or risk markers in response", domain.ErrReasoningParse)
}

func parseStructured(text string) (*domain.ReasoningVerdict, bool) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil, false
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, false
	}
	if err := compiledVerdictSchema.Validate(generic); err != nil {
		return nil, false
	}

	var parsed struct {
		Benefits []domain.VerdictItem `json:"benefits"`
		Risks    []domain.VerdictItem `json:"risks"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false
	}
	if len(parsed.Benefits)+len(parsed.Risks) == 0 {
		return nil, false
	}

	return &domain.ReasoningVerdict{
		Benefits: parsed.Benefits,
		Risks:    parsed.Risks,
		Method:   domain.ParseStructured,
	}, true
}

// extractJSONObject returns the outermost JSON object embedded in the
// text, tolerating prose or code fences around it.
func extractJSONObject(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	return json.RawMessage(text[start : end+1]), true
}

// minItemLen filters out noise lines ("None", "N/A", stray bullets)
// from the heuristic path.
const minItemLen = 10

var sectionHeaders = []string{"BENEFITS", "RISKS", "COMPLETENESS", "SUMMARY"}

func parseHeuristic(text string) (*domain.ReasoningVerdict, bool) {
	benefits := extractSection(text, "BENEFITS")
	risks := extractSection(text, "RISKS")
	if len(benefits)+len(risks) == 0 {
		return nil, false
	}
	return &domain.ReasoningVerdict{
		Benefits: benefits,
		Risks:    risks,
		Method:   domain.ParseHeuristic,
	}, true
}

// extractSection pulls the items listed under a "NAME:" heading, up to
// the next known heading or end of text.
func extractSection(text, name string) []domain.VerdictItem {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, name+":")
	if idx < 0 {
		return nil
	}
	body := text[idx+len(name)+1:]

	// Cut at the next section heading.
	cut := len(body)
	for _, h := range sectionHeaders {
		if h == name {
			continue
		}
		if i := strings.Index(strings.ToUpper(body), h+":"); i >= 0 && i < cut {
			cut = i
		}
	}
	body = body[:cut]

	var items []domain.VerdictItem
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		line = strings.TrimSpace(line)
		if len(line) <= minItemLen {
			continue
		}
		items = append(items, splitItem(line))
	}
	return items
}

// splitItem separates "Label: explanation" lines; a line without a
// colon becomes a label with no explanation.
func splitItem(line string) domain.VerdictItem {
	if label, explanation, ok := strings.Cut(line, ": "); ok && len(label) > 0 && len(label) < 80 {
		return domain.VerdictItem{
			Label:       strings.TrimSpace(label),
			Explanation: strings.TrimSpace(explanation),
		}
	}
	return domain.VerdictItem{Label: line}
}
