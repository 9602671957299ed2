package core

import (
	"strings"

	"github.com/joseph-ayodele/subscriptions-tracker/constants"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
)

// MergeResults folds per-batch results into one. Success holds if any batch
// succeeded; documentType is the common value, else the first specific one.
func MergeResults(results []entity.AnalysisResult) entity.AnalysisResult {
	switch len(results) {
	case 0:
		return entity.EmptyResult(true, "")
	case 1:
		return results[0]
	}

	out := entity.EmptyResult(false, "")
	var notes []string
	shared := results[0].DocumentType
	firstSpecific := constants.DocOther

	for _, r := range results {
		out.Success = out.Success || r.Success
		if out.SuggestedProjectName == nil {
			out.SuggestedProjectName = r.SuggestedProjectName
		}
		out.Services = append(out.Services, r.Services...)
		out.UnmatchedItems = append(out.UnmatchedItems, r.UnmatchedItems...)
		if n := strings.TrimSpace(r.ProcessingNotes); n != "" {
			notes = append(notes, n)
		}
		if r.DocumentType != shared {
			shared = ""
		}
		if firstSpecific == constants.DocOther && r.DocumentType != "" && r.DocumentType != constants.DocOther {
			firstSpecific = r.DocumentType
		}
	}

	out.DocumentType = firstSpecific
	if shared != "" {
		out.DocumentType = shared
	}
	out.ProcessingNotes = strings.Join(notes, "; ")
	return out
}
