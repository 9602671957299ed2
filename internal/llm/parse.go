package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// Outcome is the result of parsing model text: either Parsed or Unparseable.
type Outcome interface {
	outcome()
}

// Parsed holds a usable result. Strict is true when the object matched the
// schema as-is; otherwise Notes lists what the lenient pass repaired.
type Parsed struct {
	Result entity.AnalysisResult
	Strict bool
	Notes  []string
}

// Unparseable means no JSON object could be recovered from the text.
type Unparseable struct {
	Reason string
}

func (Parsed) outcome()      {}
func (Unparseable) outcome() {}

// ParseResponse runs the strict-to-lenient ladder over raw model output:
// trim and strip fences, parse the whole text as one object, else parse the first
// balanced {...} span, else give up. It is total: any input yields an Outcome.
func ParseResponse(text string) Outcome {
	body := StripFences(text)
	if body == "" {
		return Unparseable{Reason: "empty response"}
	}

	obj, err := decodeObject(body)
	if err != nil {
		span, ok := FirstObjectSpan(body)
		if !ok {
			return Unparseable{Reason: "no JSON object found: " + truncate(err.Error(), 160)}
		}
		obj, err = decodeObject(span)
		if err != nil {
			return Unparseable{Reason: "embedded JSON object invalid: " + truncate(err.Error(), 160)}
		}
	}

	result, repaired := NormalizeAnalysis(obj)
	if schemaErr := validateAnalysis(obj); schemaErr != nil {
		notes := append([]string{"schema: " + firstLine(schemaErr.Error())}, repaired...)
		return Parsed{Result: result, Strict: false, Notes: notes}
	}
	return Parsed{Result: result, Strict: true, Notes: repaired}
}

// ToResult flattens an Outcome into the caller-visible result. Repair notes are
// appended to processingNotes; an Unparseable outcome becomes success=false.
func ToResult(o Outcome) entity.AnalysisResult {
	switch v := o.(type) {
	case Parsed:
		r := v.Result
		if !v.Strict && len(v.Notes) > 0 {
			r.ProcessingNotes = joinNotes(r.ProcessingNotes, "repaired: "+strings.Join(v.Notes, ", "))
		}
		return r
	case Unparseable:
		return entity.EmptyResult(false, "model output could not be parsed: "+v.Reason)
	default:
		return entity.EmptyResult(false, fmt.Sprintf("unexpected parse outcome %T", o))
	}
}

// decodeObject keeps numbers as json.Number so one out-of-range value costs a field, not the object.
func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON is %s, not an object", jsonKind(v))
	}
	return m, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number, float64:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	}
	return "unknown"
}

func joinNotes(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "; " + b
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return truncate(s, 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

