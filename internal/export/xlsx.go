// Package export renders analysis results as spreadsheets.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/subscriptions-tracker/internal/entity"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/registry"
	"github.com/joseph-ayodele/subscriptions-tracker/internal/utils"
)

const (
	SheetServices  = "Services"
	SheetUnmatched = "Unmatched"
	SheetSummary   = "Summary"
)

var serviceHeaders = []string{
	"Service",
	"Registry ID",
	"Category",
	"Confidence",
	"Amount",
	"Currency",
	"Frequency",
	"Renewal Date",
	"Plan",
	"Account",
	"Notes",
}

// Exporter writes XLSX workbooks. The registry, when set, fills the Category column.
type Exporter struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func NewExporter(reg *registry.Registry, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{reg: reg, logger: logger}
}

// AnalysisXLSX renders res without category lookups.
func AnalysisXLSX(res entity.AnalysisResult) ([]byte, error) {
	return NewExporter(nil, nil).AnalysisXLSX(res)
}

// AnalysisXLSX returns a workbook with one row per service, one per unmatched item
// and a summary sheet.
func (e *Exporter) AnalysisXLSX(res entity.AnalysisResult) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetServices); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetUnmatched, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	writeRow(f, SheetServices, 1, toAny(serviceHeaders))
	for i, s := range res.Services {
		writeRow(f, SheetServices, i+2, e.serviceRow(s))
	}
	_ = f.SetColWidth(SheetServices, "A", "A", 28)
	_ = f.SetColWidth(SheetServices, "B", "C", 18)
	_ = f.SetColWidth(SheetServices, "D", "G", 12)
	_ = f.SetColWidth(SheetServices, "H", "J", 16)
	_ = f.SetColWidth(SheetServices, "K", "K", 48)

	writeRow(f, SheetUnmatched, 1, []any{"Item"})
	for i, item := range res.UnmatchedItems {
		writeRow(f, SheetUnmatched, i+2, []any{item})
	}
	_ = f.SetColWidth(SheetUnmatched, "A", "A", 80)

	summary := [][]any{
		{"Success", res.Success},
		{"Document Type", string(res.DocumentType)},
		{"Suggested Project", utils.StrOrEmpty(res.SuggestedProjectName)},
		{"Services", len(res.Services)},
		{"Unmatched Items", len(res.UnmatchedItems)},
		{"Processing Notes", truncate(res.ProcessingNotes, 1000)},
	}
	for i, r := range summary {
		writeRow(f, SheetSummary, i+1, r)
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 20)
	_ = f.SetColWidth(SheetSummary, "B", "B", 80)

	if idx, err := f.GetSheetIndex(SheetServices); err == nil {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	e.logger.Info("export.xlsx.ok",
		"services", len(res.Services),
		"unmatched", len(res.UnmatchedItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (e *Exporter) serviceRow(s entity.ExtractedService) []any {
	category := ""
	if s.RegistryID != nil && e.reg != nil {
		if entry, ok := e.reg.Lookup(*s.RegistryID); ok {
			category = string(entry.Category)
		}
	}
	var amount any = ""
	if s.Billing.Amount != nil {
		amount = *s.Billing.Amount
	}
	frequency := ""
	if s.Billing.Frequency != nil {
		frequency = string(*s.Billing.Frequency)
	}
	return []any{
		s.DetectedName,
		utils.StrOrEmpty(s.RegistryID),
		category,
		s.Confidence,
		amount,
		s.Billing.Currency,
		frequency,
		utils.StrOrEmpty(s.RenewalDate),
		utils.StrOrEmpty(s.PlanName),
		utils.StrOrEmpty(s.AccountIdentifier),
		truncate(s.Notes, 140),
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
