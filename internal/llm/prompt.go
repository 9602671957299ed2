package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/registry"
)

const closingInstruction = "Respond with JSON only: a single object matching the schema above. " +
	"No markdown fences, no prose before or after it."

// BuildRequest assembles one extraction call: the system instruction (schema and
// registry listing), a task line naming the document count, one part per document
// in input order, and the closing instruction.
func BuildRequest(reg *registry.Registry, docs []entity.DocumentInput) Request {
	parts := make([]Part, 0, len(docs)*2+2)
	parts = append(parts, Part{Kind: PartText, Text: buildTaskPrompt(len(docs))})

	for i, d := range docs {
		name := d.DisplayName(i)
		switch d.Kind {
		case constants.KindBinary:
			parts = append(parts,
				Part{Kind: PartText, Text: "[Document: " + name + "] (" + d.MimeType + ", attached below)"},
				Part{Kind: PartBinary, Data: d.Content, MimeType: d.MimeType, Filename: name},
			)
		default:
			parts = append(parts, Part{Kind: PartText, Text: "[Document: " + name + "]\n" + d.Content})
		}
	}
	parts = append(parts, Part{Kind: PartText, Text: closingInstruction})

	return Request{
		System:        BuildSystemPrompt(reg),
		Parts:         parts,
		DocumentCount: len(docs),
		Schema:        AnalysisJSONSchema(),
	}
}

// BuildSystemPrompt composes the fixed instruction: role, output rules, the exact
// JSON Schema and the registry listing the model may self-resolve against.
func BuildSystemPrompt(reg *registry.Registry) string {
	lines := []string{
		"You extract SaaS subscription and billing records from documents.",
		"For every billed service report: detectedName as printed, billing amount as a number, " +
			"a 3-letter ISO 4217 currency (default USD if uncertain), frequency (" +
			strings.Join(constants.FrequencyStrings(), ", ") + " or null), renewalDate as YYYY-MM-DD, " +
			"planName and accountIdentifier when visible.",
		"If the vendor is one of the known services below, set registryId to its id; otherwise registryId is null.",
		"confidence is a number between 0 and 1.",
		"Anything that looks relevant but is not a billed service goes into unmatchedItems as a short description.",
		"If a document cannot be read or classified, add a short description of it to unmatchedItems.",
		"Set success to false only when nothing in the documents could be interpreted.",
		"Never invent amounts or dates. Use null when a value is absent.",
		"",
		"JSON Schema:",
		mustJSON(AnalysisJSONSchema()),
		"",
		"Known services (id | name | aliases):",
	}
	if reg != nil {
		for _, e := range reg.Entries() {
			lines = append(lines, fmt.Sprintf("%s | %s | %s", e.ID, e.Name, strings.Join(e.Aliases, ", ")))
		}
	}
	return strings.Join(lines, "\n")
}

func buildTaskPrompt(n int) string {
	if n == 1 {
		return "Analyze the following document and extract every subscription or billing record it contains."
	}
	return fmt.Sprintf("Analyze the following %d documents together and extract every subscription or billing record they contain.", n)
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
