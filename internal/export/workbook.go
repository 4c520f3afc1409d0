// Package export renders stock and party ledgers as xlsx workbooks.
package export

import (
	"fmt"

	"printshop-backend/internal/ledger"
	"printshop-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const (
	StockSheet  = "Stock"
	LedgerSheet = "Ledger"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout      = "2006-01-02"
)

var (
	stockHeaders  = []any{"ID", "Party", "Paper type", "GSM", "Current", "Reserved", "Available", "Level"}
	ledgerHeaders = []any{"Date", "Type", "Description", "Amount", "Balance after", "Deleted"}
)

func newWorkbook(sheet string) (*excelize.File, int, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, 0, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, 0, err
	}
	return f, bold, nil
}

// writeRow writes values starting at column A of row.
func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func boldRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

// StockWorkbook lists items with their derived available quantity and
// level. Party and PaperType should be preloaded.
func StockWorkbook(items []models.StockItem) (*excelize.File, error) {
	f, bold, err := newWorkbook(StockSheet)
	if err != nil {
		return nil, err
	}
	if err := writeRow(f, StockSheet, 1, stockHeaders); err != nil {
		return nil, err
	}
	if err := boldRow(f, StockSheet, 1, len(stockHeaders), bold); err != nil {
		return nil, err
	}

	for i, it := range items {
		row := []any{
			it.ID,
			it.Party.Name,
			it.PaperType.Name,
			it.GSM,
			it.CurrentQuantity,
			it.ReservedQuantity,
			ledger.Available(it.CurrentQuantity, it.ReservedQuantity),
			string(ledger.ClassifyStock(it.CurrentQuantity)),
		}
		if err := writeRow(f, StockSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	totals := ledger.SummarizeStock(items)
	footer := len(items) + 3
	if err := writeRow(f, StockSheet, footer, []any{"Total", "", "", "", totals.TotalSheets, totals.TotalReserved, totals.TotalAvailable}); err != nil {
		return nil, err
	}
	if err := boldRow(f, StockSheet, footer, len(stockHeaders), bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(StockSheet, "B", "C", 24); err != nil {
		return nil, err
	}
	return f, nil
}

// PartyLedgerWorkbook writes the party header then one row per transaction
// in the order given.
func PartyLedgerWorkbook(party models.Party, txs []models.PartyTransaction) (*excelize.File, error) {
	f, bold, err := newWorkbook(LedgerSheet)
	if err != nil {
		return nil, err
	}
	if err := writeRow(f, LedgerSheet, 1, []any{"Party", party.Name}); err != nil {
		return nil, err
	}
	if err := writeRow(f, LedgerSheet, 2, []any{"Balance", party.Balance.InexactFloat64()}); err != nil {
		return nil, err
	}
	if err := writeRow(f, LedgerSheet, 4, ledgerHeaders); err != nil {
		return nil, err
	}
	if err := boldRow(f, LedgerSheet, 4, len(ledgerHeaders), bold); err != nil {
		return nil, err
	}

	for i, tx := range txs {
		deleted := ""
		if tx.IsDeleted {
			deleted = "yes"
			if tx.DeletedReason != "" {
				deleted = fmt.Sprintf("yes: %s", tx.DeletedReason)
			}
		}
		row := []any{
			tx.Date.Format(dateLayout),
			string(tx.Type),
			tx.Description,
			tx.Amount.InexactFloat64(),
			tx.BalanceAfter.InexactFloat64(),
			deleted,
		}
		if err := writeRow(f, LedgerSheet, i+5, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(LedgerSheet, "C", "C", 40); err != nil {
		return nil, err
	}
	return f, nil
}

// Send streams f as an attachment named filename.
func Send(c *fiber.Ctx, f *excelize.File, filename string) error {
	defer f.Close()
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Attachment(filename)
	if err := f.Write(c); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
