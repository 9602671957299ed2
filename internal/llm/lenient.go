package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/utils"
)

const defaultCurrency = "USD"

// currencySymbols is ordered so that longer symbols are tried before "$".
var currencySymbols = []struct{ symbol, code string }{
	{"US$", "USD"},
	{"A$", "AUD"},
	{"C$", "CAD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
}

// knownCurrencies are the codes recognised inside free-text amounts like "20.00 usd".
var knownCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "INR": true, "AUD": true, "CAD": true,
	"CHF": true, "SEK": true, "NOK": true, "DKK": true, "NZD": true, "SGD": true, "BRL": true,
	"MXN": true, "PLN": true, "ZAR": true, "NGN": true, "KES": true,
}

var documentTypeSynonyms = map[string]constants.DocumentType{
	"bill":      constants.DocInvoice,
	"statement": constants.DocInvoice,
	"order":     constants.DocReceipt,
	"payment":   constants.DocReceipt,
	"csv":       constants.DocSpreadsheet,
	"excel":     constants.DocSpreadsheet,
	"xlsx":      constants.DocSpreadsheet,
	"image":     constants.DocScreenshot,
	"photo":     constants.DocScreenshot,
	"email":     constants.DocOther,
	"mixed":     constants.DocOther,
	"unknown":   constants.DocOther,
}

// normalizer turns a loosely shaped decoded object into an AnalysisResult, filling safe
// defaults for absent fields and recording every coercion it had to make.
type normalizer struct {
	repaired []string
}

func (n *normalizer) note(format string, args ...any) {
	n.repaired = append(n.repaired, fmt.Sprintf(format, args...))
}

// NormalizeAnalysis builds a result from a decoded JSON object. It never fails.
// A missing or unreadable success flag is derived from whether anything was extracted.
func NormalizeAnalysis(m map[string]any) (entity.AnalysisResult, []string) {
	n := &normalizer{}
	out := entity.EmptyResult(false, "")

	out.SuggestedProjectName = n.optString(m, "suggestedProjectName")
	out.DocumentType = n.documentType(m["documentType"])
	out.ProcessingNotes = n.notes(m["processingNotes"])

	for i, raw := range n.list(m, "services") {
		obj, ok := raw.(map[string]any)
		if !ok {
			n.note("services[%d] dropped: not an object", i)
			continue
		}
		svc, ok := n.service(i, obj)
		if ok {
			out.Services = append(out.Services, svc)
		}
	}
	for _, raw := range n.list(m, "unmatchedItems") {
		s := strings.TrimSpace(stringify(raw))
		if s != "" {
			out.UnmatchedItems = append(out.UnmatchedItems, s)
		}
	}

	if success, ok := n.success(m); ok {
		out.Success = success
	} else {
		out.Success = len(out.Services) > 0 || len(out.UnmatchedItems) > 0
	}
	return out, n.repaired
}

func (n *normalizer) success(m map[string]any) (bool, bool) {
	raw, present := m["success"]
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			n.note("success %q unreadable", v)
			return false, false
		}
		n.note("success coerced from string")
		return b, true
	case nil:
		if present {
			n.note("success was null")
		} else {
			n.note("success missing")
		}
		return false, false
	default:
		n.note("success had type %T", v)
		return false, false
	}
}

func (n *normalizer) service(i int, m map[string]any) (entity.ExtractedService, bool) {
	name := ""
	for _, k := range []string{"detectedName", "name", "vendor", "serviceName"} {
		if s := strings.TrimSpace(stringify(m[k])); s != "" {
			if k != "detectedName" {
				n.note("services[%d].%s used as detectedName", i, k)
			}
			name = s
			break
		}
	}
	regID := n.optString(m, "registryId")
	if name == "" && regID != nil {
		name = *regID
		n.note("services[%d] named after registryId", i)
	}
	if name == "" {
		n.note("services[%d] dropped: no name", i)
		return entity.ExtractedService{}, false
	}

	svc := entity.ExtractedService{
		RegistryID:        regID,
		DetectedName:      name,
		Confidence:        n.confidence(i, m["confidence"]),
		AccountIdentifier: n.optString(m, "accountIdentifier"),
		PlanName:          n.optString(m, "planName"),
		Notes:             strings.TrimSpace(stringify(m["notes"])),
	}

	billing, ok := m["billing"].(map[string]any)
	if !ok {
		// some models flatten billing onto the service
		billing = map[string]any{"amount": m["amount"], "currency": m["currency"], "frequency": m["frequency"]}
		if m["billing"] != nil {
			n.note("services[%d].billing had type %T", i, m["billing"])
		}
	}
	svc.Billing = n.billing(i, billing)

	if raw := strings.TrimSpace(stringify(m["renewalDate"])); raw != "" {
		if d, ok := utils.NormalizeDate(raw); ok {
			if d != raw {
				n.note("services[%d].renewalDate normalized", i)
			}
			svc.RenewalDate = &d
		} else {
			n.note("services[%d].renewalDate %q unreadable", i, raw)
		}
	}
	return svc, true
}

func (n *normalizer) billing(i int, m map[string]any) entity.Billing {
	b := entity.Billing{Currency: defaultCurrency}
	symbolCurrency := ""

	switch v := m["amount"].(type) {
	case float64, json.Number:
		if f, ok := finiteNumber(v); ok {
			b.Amount = &f
		} else {
			n.note("services[%d].billing.amount %v out of range", i, v)
		}
	case string:
		f, cur, ok := parseMoney(v)
		if ok {
			b.Amount = &f
			symbolCurrency = cur
			n.note("services[%d].billing.amount parsed from string", i)
		} else if strings.TrimSpace(v) != "" {
			n.note("services[%d].billing.amount %q unreadable", i, v)
		}
	case nil:
	default:
		n.note("services[%d].billing.amount had type %T", i, v)
	}

	cur := strings.TrimSpace(stringify(m["currency"]))
	switch {
	case cur == "" && symbolCurrency != "":
		b.Currency = symbolCurrency
	case cur == "":
	case symbolCode(cur) != "":
		b.Currency = symbolCode(cur)
		n.note("services[%d].billing.currency symbol mapped", i)
	default:
		up := strings.ToUpper(cur)
		if isISOCurrency(up) {
			if up != cur {
				n.note("services[%d].billing.currency upper-cased", i)
			}
			b.Currency = up
		} else {
			n.note("services[%d].billing.currency %q replaced with %s", i, cur, defaultCurrency)
		}
	}

	if raw := strings.TrimSpace(stringify(m["frequency"])); raw != "" {
		if f, ok := constants.CanonicalizeFrequency(raw); ok {
			if string(f) != raw {
				n.note("services[%d].billing.frequency %q mapped to %s", i, raw, f)
			}
			b.Frequency = &f
		} else {
			n.note("services[%d].billing.frequency %q unknown", i, raw)
		}
	}
	return b
}

func (n *normalizer) confidence(i int, v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64, json.Number:
		num, ok := finiteNumber(t)
		if !ok {
			n.note("services[%d].confidence %v out of range", i, t)
			return 0
		}
		f = num
	case string:
		s := strings.TrimSpace(t)
		pct := strings.HasSuffix(s, "%")
		parsed, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			n.note("services[%d].confidence %q unreadable", i, t)
			return 0
		}
		if pct {
			parsed /= 100
		}
		n.note("services[%d].confidence parsed from string", i)
		f = parsed
	case nil:
		return 0
	default:
		n.note("services[%d].confidence had type %T", i, t)
		return 0
	}
	c := ClampConfidence(f)
	if c != f {
		n.note("services[%d].confidence clamped", i)
	}
	return c
}

func (n *normalizer) documentType(v any) constants.DocumentType {
	s := strings.ToLower(strings.TrimSpace(stringify(v)))
	if s == "" {
		return constants.DocOther
	}
	for _, d := range constants.DocumentTypes() {
		if s == d {
			return constants.DocumentType(d)
		}
	}
	if d, ok := documentTypeSynonyms[s]; ok {
		n.note("documentType %q mapped to %s", s, d)
		return d
	}
	n.note("documentType %q unknown", s)
	return constants.DocOther
}

func (n *normalizer) notes(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := strings.TrimSpace(stringify(p)); s != "" {
				parts = append(parts, s)
			}
		}
		n.note("processingNotes joined from list")
		return strings.Join(parts, "; ")
	case nil:
		return ""
	default:
		return stringify(t)
	}
}

func (n *normalizer) optString(m map[string]any, key string) *string {
	v, present := m[key]
	if !present || v == nil {
		return nil
	}
	if _, isString := v.(string); !isString {
		n.note("%s had type %T", key, v)
	}
	return utils.StrPtr(stringify(v))
}

// list reads key as an array; a lone object or string is wrapped.
func (n *normalizer) list(m map[string]any, key string) []any {
	switch v := m[key].(type) {
	case []any:
		return v
	case nil:
		return nil
	default:
		n.note("%s wrapped into a list", key)
		return []any{v}
	}
}

// ClampConfidence maps any float into [0,1]; NaN becomes 0.
func ClampConfidence(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// parseMoney reads "$20", "20.00 USD", "1,234.50", "19,99 €" and similar.
// The returned currency is "" when the text names none.
func parseMoney(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	cur := ""
	for _, cs := range currencySymbols {
		if strings.Contains(s, cs.symbol) {
			cur = cs.code
			break
		}
	}
	if cur == "" {
		for _, field := range strings.Fields(s) {
			if up := strings.ToUpper(field); knownCurrencies[up] {
				cur = up
				break
			}
		}
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	num := b.String()
	// a single comma followed by exactly two digits is a decimal comma
	if !strings.Contains(num, ".") && strings.Count(num, ",") == 1 && len(num)-strings.Index(num, ",") == 3 {
		num = strings.Replace(num, ",", ".", 1)
	}
	num = strings.ReplaceAll(num, ",", "")

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "", false
	}
	return f, cur, true
}

func symbolCode(s string) string {
	for _, cs := range currencySymbols {
		if s == cs.symbol {
			return cs.code
		}
	}
	return ""
}

func isISOCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// finiteNumber reads a decoded JSON number; values beyond float64 range are rejected.
func finiteNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
