package constants

// DocumentType is the model's classification of the analyzed batch.
type DocumentType string

// Stable values (returned on the wire).
const (
	DocInvoice     DocumentType = "invoice"
	DocReceipt     DocumentType = "receipt"
	DocSpreadsheet DocumentType = "spreadsheet"
	DocScreenshot  DocumentType = "screenshot"
	DocOther       DocumentType = "other"
)

var allDocumentTypes = []DocumentType{DocInvoice, DocReceipt, DocSpreadsheet, DocScreenshot, DocOther}

// DocumentTypes returns the allowed document types as strings.
func DocumentTypes() []string {
	out := make([]string, len(allDocumentTypes))
	for i, d := range allDocumentTypes {
		out[i] = string(d)
	}
	return out
}

// AuditAction names the operation recorded in the audit trail.
type AuditAction string

const (
	ActionAnalyzeDocuments AuditAction = "analyze_documents"
	ActionFetchInvoices    AuditAction = "fetch_invoices"
)
