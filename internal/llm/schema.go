package llm

import (
	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

// AnalysisJSONSchema returns the JSON-Schema (draft 2020-12 subset) of the model output.
// It is embedded in the system prompt and used locally to decide strict vs lenient parsing.
func AnalysisJSONSchema() map[string]any {
	service := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"registryId":   nullable(map[string]any{"type": "string", "minLength": 1}),
			"detectedName": map[string]any{"type": "string", "minLength": 1},
			"confidence":   map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"billing": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"amount":    nullable(map[string]any{"type": "number"}),
					"currency":  map[string]any{"type": "string", "pattern": `^[A-Z]{3}$`},
					"frequency": nullable(map[string]any{"type": "string", "enum": constants.FrequencyStrings()}),
				},
				"required": []string{"amount", "currency", "frequency"},
			},
			"accountIdentifier": nullable(map[string]any{"type": "string"}),
			"renewalDate":       nullable(map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}),
			"planName":          nullable(map[string]any{"type": "string"}),
			"notes":             map[string]any{"type": "string"},
		},
		"required": []string{"detectedName", "confidence", "billing"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success":              map[string]any{"type": "boolean"},
			"suggestedProjectName": nullable(map[string]any{"type": "string"}),
			"services":             map[string]any{"type": "array", "items": service},
			"unmatchedItems":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"documentType":         map[string]any{"type": "string", "enum": constants.DocumentTypes()},
			"processingNotes":      map[string]any{"type": "string"},
		},
		"required": []string{"success", "services", "unmatchedItems", "documentType"},
	}
}

func nullable(schema map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{schema, map[string]any{"type": "null"}}}
}
