// Package export renders the payment ledger as a spreadsheet.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/agrocredit/backend/internal/domain/financing"
	"github.com/agrocredit/backend/internal/domain/kpi"
)

// ContentTypeXLSX is the MIME type of the rendered workbook
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Ledger"

// LedgerHeaders are the column titles of the ledger sheet
var LedgerHeaders = []string{
	"Payment ID", "Date", "Subject ID", "Financing ID", "Method", "Reference",
	"Sale Amount", "Retained Amount", "Farmer Profit",
}

// XLSXLedgerWriter writes payments to one sheet followed by a totals row
type XLSXLedgerWriter struct {
	sheet      string
	dateLayout string
}

// WriterOption is a functional option for XLSXLedgerWriter configuration
type WriterOption func(*XLSXLedgerWriter)

// WithSheetName sets the worksheet name (default "Ledger")
func WithSheetName(name string) WriterOption {
	return func(w *XLSXLedgerWriter) {
		w.sheet = name
	}
}

// WithDateLayout sets how payment dates are written (default 2006-01-02)
func WithDateLayout(layout string) WriterOption {
	return func(w *XLSXLedgerWriter) {
		w.dateLayout = layout
	}
}

// NewXLSXLedgerWriter creates a ledger writer
func NewXLSXLedgerWriter(opts ...WriterOption) *XLSXLedgerWriter {
	w := &XLSXLedgerWriter{
		sheet:      defaultSheet,
		dateLayout: time.DateOnly,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ContentType returns the MIME type of the output
func (w *XLSXLedgerWriter) ContentType() string {
	return ContentTypeXLSX
}

// FileExtension returns the extension of the output
func (w *XLSXLedgerWriter) FileExtension() string {
	return ".xlsx"
}

// Write renders payments and their totals into out
func (w *XLSXLedgerWriter) Write(out io.Writer, payments []financing.Payment, totals kpi.Totals) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), w.sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(LedgerHeaders))
	for i, h := range LedgerHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(w.sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetRowStyle(w.sheet, 1, 1, boldStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i := range payments {
		p := &payments[i]
		ref := ""
		if p.Reference != nil {
			ref = *p.Reference
		}
		row := []interface{}{
			p.ID.String(),
			p.Date.Format(w.dateLayout),
			p.SubjectID.String(),
			p.FinancingID.String(),
			p.Method.String(),
			ref,
			money(p.SaleAmount),
			money(p.RetainedAmount),
			money(p.FarmerProfit),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(w.sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write payment %s: %w", p.ID, err)
		}
	}

	totalsRow := len(payments) + 2
	cell, err := excelize.CoordinatesToCellName(1, totalsRow)
	if err != nil {
		return err
	}
	totalsValues := []interface{}{
		"TOTAL", totals.PaymentCount, "", "", "", "",
		money(totals.TotalIncome),
		money(totals.TotalRetained),
		money(totals.TotalFarmerProfit),
	}
	if err := f.SetSheetRow(w.sheet, cell, &totalsValues); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}
	if err := f.SetRowStyle(w.sheet, totalsRow, totalsRow, boldStyle); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}
	if err := f.SetColStyle(w.sheet, "G:I", moneyStyle); err != nil {
		return fmt.Errorf("failed to style amounts: %w", err)
	}
	if err := f.SetColWidth(w.sheet, "A", "D", 38); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// money converts an amount for a numeric cell. Amounts carry two decimals,
// well within float64 precision for display.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
