package entity

import (
	"github.com/joseph-ayodele/subscriptions-tracker/constants"
)

// AnalysisResult is the externally visible extraction contract.
// Success=false means the model output was unusable; it is not an error.
type AnalysisResult struct {
	Success              bool                   `json:"success"`
	SuggestedProjectName *string                `json:"suggestedProjectName"`
	Services             []ExtractedService     `json:"services"`
	UnmatchedItems       []string               `json:"unmatchedItems"`
	DocumentType         constants.DocumentType `json:"documentType"`
	ProcessingNotes      string                 `json:"processingNotes"`
}

// EmptyResult returns a result with non-nil slices, so it serializes as [] rather than null.
func EmptyResult(success bool, notes string) AnalysisResult {
	return AnalysisResult{
		Success:         success,
		Services:        []ExtractedService{},
		UnmatchedItems:  []string{},
		DocumentType:    constants.DocOther,
		ProcessingNotes: notes,
	}
}

// MailboxAnalysis is the mailbox path response: the analysis plus scan counters.
type MailboxAnalysis struct {
	AnalysisResult
	EmailsScanned      int `json:"emailsScanned"`
	InvoiceEmailsFound int `json:"invoiceEmailsFound"`
	DocumentsAnalyzed  int `json:"documentsAnalyzed"`
}

// AuthLink is the hosted mailbox-linking URL returned by the provider.
type AuthLink struct {
	URL string `json:"url"`
}
