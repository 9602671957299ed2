package constants

import (
	"strings"
)

// Frequency is the billing cadence of an extracted service.
type Frequency string

const (
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	OneTime Frequency = "one-time"
)

var allFrequencies = []Frequency{Monthly, Yearly, OneTime}

// FrequencyStrings returns the allowed cadences as strings.
func FrequencyStrings() []string {
	result := make([]string, len(allFrequencies))
	for i, f := range allFrequencies {
		result[i] = string(f)
	}
	return result
}

// CanonicalizeFrequency maps model wording onto a Frequency. ok is false when nothing fits.
func CanonicalizeFrequency(input string) (Frequency, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Frequency{
		"month":      Monthly,
		"monthly":    Monthly,
		"per month":  Monthly,
		"/mo":        Monthly,
		"mo":         Monthly,
		"mensual":    Monthly,
		"year":       Yearly,
		"yearly":     Yearly,
		"annual":     Yearly,
		"annually":   Yearly,
		"per year":   Yearly,
		"/yr":        Yearly,
		"yr":         Yearly,
		"one-time":   OneTime,
		"one time":   OneTime,
		"onetime":    OneTime,
		"one_time":   OneTime,
		"once":       OneTime,
		"lifetime":   OneTime,
		"single":     OneTime,
	}
	if f, ok := synonyms[normalized]; ok {
		return f, true
	}
	return "", false
}

// Category is the registry grouping of a vendor.
type Category string

const (
	CategoryHosting       Category = "hosting"
	CategoryCloud         Category = "cloud"
	CategoryDevTools      Category = "devtools"
	CategoryProductivity  Category = "productivity"
	CategoryCommunication Category = "communication"
	CategoryPayments      Category = "payments"
	CategoryAI            Category = "ai"
	CategoryDesign        Category = "design"
	CategoryMonitoring    Category = "monitoring"
	CategoryDatabase      Category = "database"
	CategoryOther         Category = "other"
)

var allCategories = []Category{
	CategoryHosting,
	CategoryCloud,
	CategoryDevTools,
	CategoryProductivity,
	CategoryCommunication,
	CategoryPayments,
	CategoryAI,
	CategoryDesign,
	CategoryMonitoring,
	CategoryDatabase,
	CategoryOther,
}

// Canonicalize maps a registry category label onto a Category, falling back to CategoryOther.
func Canonicalize(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return CategoryOther, false
	}
	synonyms := map[string]Category{
		"saas":           CategoryProductivity,
		"infrastructure": CategoryCloud,
		"paas":           CategoryHosting,
		"observability":  CategoryMonitoring,
		"billing":        CategoryPayments,
		"llm":            CategoryAI,
	}
	if c, ok := synonyms[normalized]; ok {
		return c, true
	}
	for _, c := range allCategories {
		if normalized == string(c) {
			return c, true
		}
	}
	return CategoryOther, false
}
