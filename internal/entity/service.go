package entity

import (
	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

// Billing is the money side of an extracted service.
type Billing struct {
	Amount    *float64             `json:"amount"`
	Currency  string               `json:"currency"` // ISO 4217
	Frequency *constants.Frequency `json:"frequency"`
}

// ExtractedService is one billed vendor found in the documents.
// RegistryID stays nil until resolution assigns one.
type ExtractedService struct {
	RegistryID        *string `json:"registryId"`
	DetectedName      string  `json:"detectedName"`
	Confidence        float64 `json:"confidence"` // 0..1
	Billing           Billing `json:"billing"`
	AccountIdentifier *string `json:"accountIdentifier"`
	RenewalDate       *string `json:"renewalDate"` // YYYY-MM-DD
	PlanName          *string `json:"planName"`
	Notes             string  `json:"notes"`
}
