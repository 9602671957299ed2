package llm

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

const strictDoc = `{
  "success": true,
  "suggestedProjectName": "Acme web",
  "services": [{
    "registryId": "vercel",
    "detectedName": "Vercel Pro",
    "confidence": 0.95,
    "billing": {"amount": 20, "currency": "USD", "frequency": "monthly"},
    "accountIdentifier": null,
    "renewalDate": "2025-03-01",
    "planName": "Pro",
    "notes": ""
  }],
  "unmatchedItems": ["unreadable image"],
  "documentType": "receipt",
  "processingNotes": "ok"
}`

func TestParseResponse_Strict(t *testing.T) {
	out := ParseResponse(strictDoc)
	p, ok := out.(Parsed)
	require.True(t, ok, "got %T", out)
	assert.True(t, p.Strict)
	assert.Empty(t, p.Notes)

	r := p.Result
	assert.True(t, r.Success)
	require.Len(t, r.Services, 1)
	s := r.Services[0]
	assert.Equal(t, "vercel", *s.RegistryID)
	assert.Equal(t, 20.0, *s.Billing.Amount)
	assert.Equal(t, constants.Monthly, *s.Billing.Frequency)
	assert.Equal(t, "2025-03-01", *s.RenewalDate)
	assert.Nil(t, s.AccountIdentifier)
	assert.Equal(t, []string{"unreadable image"}, r.UnmatchedItems)
	assert.Equal(t, constants.DocReceipt, r.DocumentType)
}

func TestParseResponse_FencedEqualsBare(t *testing.T) {
	bare := ToResult(ParseResponse(strictDoc))
	for _, fenced := range []string{
		"```json\n" + strictDoc + "\n```",
		"```\n" + strictDoc + "\n```",
		"  ```JSON " + strictDoc + "```  ",
	} {
		assert.Equal(t, bare, ToResult(ParseResponse(fenced)))
	}
}

func TestParseResponse_EmbeddedSpan(t *testing.T) {
	text := "Sure! Here is the result:\n" + strictDoc + "\nLet me know if you need {anything} else."
	p, ok := ParseResponse(text).(Parsed)
	require.True(t, ok)
	assert.Equal(t, "Vercel Pro", p.Result.Services[0].DetectedName)
}

func TestParseResponse_BracesInsideStrings(t *testing.T) {
	text := `prefix {"success": true, "services": [], "unmatchedItems": ["odd } brace \" {"], "documentType": "other"} suffix`
	p, ok := ParseResponse(text).(Parsed)
	require.True(t, ok)
	assert.Equal(t, []string{`odd } brace " {`}, p.Result.UnmatchedItems)
}

func TestParseResponse_IsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"I could not read these documents.",
		`{"success": true, "services": [{"detectedName": "Vercel"`,
		"```json\n```",
		"[1, 2, 3]",
		`"just a string"`,
		"{not json at all}",
		"null",
		"{}",
	}
	for _, in := range inputs {
		r := ToResult(ParseResponse(in))
		assert.NotNil(t, r.Services, in)
		assert.NotNil(t, r.UnmatchedItems, in)
		assert.NotEmpty(t, r.DocumentType, in)
	}

	u, ok := ParseResponse("no json here").(Unparseable)
	require.True(t, ok)
	r := ToResult(u)
	assert.False(t, r.Success)
	assert.Equal(t, constants.DocOther, r.DocumentType)
	assert.Contains(t, r.ProcessingNotes, "could not be parsed")
}

func TestParseResponse_EmptyObjectTakesDefaults(t *testing.T) {
	p, ok := ParseResponse("{}").(Parsed)
	require.True(t, ok)
	assert.False(t, p.Strict)
	assert.False(t, p.Result.Success)
	assert.Empty(t, p.Result.Services)
	assert.Nil(t, p.Result.SuggestedProjectName)
	assert.Equal(t, constants.DocOther, p.Result.DocumentType)
	assert.Contains(t, p.Notes, "success missing")
}

func TestParseResponse_MissingSuccessFollowsExtraction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"garbage services", `{"services": 5}`, false},
		{"empty lists", `{"services": [], "unmatchedItems": []}`, false},
		{"unreadable flag", `{"success": "maybe", "services": []}`, false},
		{"service found", `{"services": [{"detectedName": "Notion", "confidence": 0.8}]}`, true},
		{"only unmatched", `{"unmatchedItems": ["blurry photo"]}`, true},
		{"explicit false wins", `{"success": false, "services": [{"detectedName": "Notion"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToResult(ParseResponse(tt.text)).Success)
		})
	}
}

func TestParseResponse_LenientRepairs(t *testing.T) {
	text := `{
	  "success": "true",
	  "services": [
	    {"name": "AWS", "confidence": "140%", "billing": {"amount": "$1,234.50", "currency": "usd", "frequency": "Annual"}, "renewalDate": "March 1, 2025"},
	    {"detectedName": "Figma", "confidence": -3, "amount": "12,00 €", "frequency": "weekly"},
	    {"confidence": 0.5},
	    "not an object"
	  ],
	  "unmatchedItems": "coffee",
	  "documentType": "Bill",
	  "processingNotes": ["a", "b"]
	}`
	p, ok := ParseResponse(text).(Parsed)
	require.True(t, ok)
	assert.False(t, p.Strict)
	assert.NotEmpty(t, p.Notes)

	r := p.Result
	assert.True(t, r.Success)
	assert.Equal(t, constants.DocInvoice, r.DocumentType)
	assert.Equal(t, "a; b", r.ProcessingNotes)
	assert.Equal(t, []string{"coffee"}, r.UnmatchedItems)
	require.Len(t, r.Services, 2)

	aws := r.Services[0]
	assert.Equal(t, "AWS", aws.DetectedName)
	assert.Equal(t, 1.0, aws.Confidence)
	assert.InDelta(t, 1234.50, *aws.Billing.Amount, 1e-9)
	assert.Equal(t, "USD", aws.Billing.Currency)
	assert.Equal(t, constants.Yearly, *aws.Billing.Frequency)
	assert.Equal(t, "2025-03-01", *aws.RenewalDate)

	figma := r.Services[1]
	assert.Equal(t, 0.0, figma.Confidence)
	assert.InDelta(t, 12.0, *figma.Billing.Amount, 1e-9)
	assert.Equal(t, "EUR", figma.Billing.Currency)
	assert.Nil(t, figma.Billing.Frequency)

	assert.Contains(t, ToResult(p).ProcessingNotes, "repaired:")
}

func TestParseResponse_OutOfRangeNumberDropsOnlyThatField(t *testing.T) {
	text := `{"success": true, "services": [
		{"detectedName": "Vercel", "confidence": 0.9, "billing": {"amount": 1e400, "currency": "USD", "frequency": "monthly"}},
		{"detectedName": "Figma", "confidence": 1e400, "billing": {"amount": 15, "currency": "USD"}}
	], "unmatchedItems": [], "documentType": "invoice"}`

	p, ok := ParseResponse(text).(Parsed)
	require.True(t, ok)
	require.Len(t, p.Result.Services, 2)

	vercel := p.Result.Services[0]
	assert.Nil(t, vercel.Billing.Amount)
	assert.Equal(t, 0.9, vercel.Confidence)
	assert.Equal(t, constants.Monthly, *vercel.Billing.Frequency)

	figma := p.Result.Services[1]
	assert.Equal(t, 0.0, figma.Confidence)
	assert.Equal(t, 15.0, *figma.Billing.Amount)

	assert.Contains(t, strings.Join(p.Notes, ","), "out of range")
}

func TestParseResponse_TrailingDataFallsBackToSpan(t *testing.T) {
	p, ok := ParseResponse(`{"success": true, "unmatchedItems": ["x"]} {"success": false}`).(Parsed)
	require.True(t, ok)
	assert.True(t, p.Result.Success)
	assert.Equal(t, []string{"x"}, p.Result.UnmatchedItems)
}

func TestClampConfidence(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.4: 0.4, 1: 1, 7: 1} {
		assert.Equal(t, want, ClampConfidence(in))
	}
	assert.Equal(t, 0.0, ClampConfidence(math.NaN()))
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripFences("  {\"a\":1}  "))
	assert.Equal(t, "", StripFences("```"))
}

func TestFirstObjectSpan(t *testing.T) {
	span, ok := FirstObjectSpan(`x {"a": {"b": "}"}} y {"c": 1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": "}"}}`, span)

	_, ok = FirstObjectSpan(`{"a": 1`)
	assert.False(t, ok)
	_, ok = FirstObjectSpan("nothing")
	assert.False(t, ok)
}
