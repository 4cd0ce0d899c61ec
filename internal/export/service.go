// Package export renders stored business records as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/paperia/internal/repository"
)

const (
	invoiceSheet = "Invoices"
	itemSheet    = "Items"
)

// Service produces XLSX bytes from the invoice repository.
type Service struct {
	invoices repository.InvoiceRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(invoices repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{invoices: invoices, logger: logger, now: time.Now}
}

// ExportInvoicesXLSX returns a workbook with one sheet of invoice headers and
// one of line items for the given organization and date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> all invoices. A nil orgID spans every organization.
func (s *Service) ExportInvoicesXLSX(ctx context.Context, orgID uuid.UUID, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	fromDate, toDate := dateWindow(from, to, s.now().UTC())
	invs, err := s.invoices.List(ctx, repository.InvoiceFilter{OrganizationID: orgID, From: fromDate, To: toDate})
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close error", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", invoiceSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(invoiceSheet)
	f.SetActiveSheet(activeIndex)

	writeRow(f, invoiceSheet, 1, "Date", "Invoice Number", "Customer", "Subtotal", "Discount", "Tax", "Total")
	writeRow(f, itemSheet, 1, "Invoice Number", "Product", "Qty", "Unit Price", "Total")

	itemRow := 2
	for i, inv := range invs {
		writeRow(f, invoiceSheet, i+2,
			inv.Date.Format("2006-01-02"),
			inv.Number,
			inv.CustomerName,
			inv.Subtotal,
			optional(inv.Discount),
			optional(inv.Tax),
			inv.Total,
		)

		items, err := s.invoices.Items(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("query items for %s: %w", inv.ID, err)
		}
		for _, it := range items {
			writeRow(f, itemSheet, itemRow, inv.Number, it.ProductName, it.Qty, it.UnitPrice, it.Total)
			itemRow++
		}
	}

	_ = f.SetColWidth(invoiceSheet, "A", "A", 12) // date
	_ = f.SetColWidth(invoiceSheet, "B", "B", 18) // number
	_ = f.SetColWidth(invoiceSheet, "C", "C", 32) // customer
	_ = f.SetColWidth(invoiceSheet, "D", "G", 14) // amounts
	_ = f.SetColWidth(itemSheet, "A", "A", 18)
	_ = f.SetColWidth(itemSheet, "B", "B", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"organization_id", orgID.String(),
		"rows", len(invs),
		"items", itemRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

// dateWindow normalizes to UTC dates; an open upper bound with a lower bound
// ends today.
func dateWindow(from, to *time.Time, now time.Time) (*time.Time, *time.Time) {
	var fromDate, toDate *time.Time
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		fromDate = &f
	}
	if to != nil {
		t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		toDate = &t
	}
	return fromDate, toDate
}
