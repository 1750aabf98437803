package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/trustbridge/walletd/internal/history"
)

const (
	historySheet = "History"
	summarySheet = "Summary"
)

var historyHeaders = []any{
	"Date", "Type", "Amount", "Asset", "From", "To", "Memo", "Fee (XLM)", "Status", "Hash",
}

// WriteHistory renders the transaction list as an xlsx workbook with a
// History sheet and a Summary sheet, and writes it to w.
func WriteHistory(w io.Writer, txs []history.ProcessedTransaction, stats history.Stats) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return fmt.Errorf("naming history sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := f.SetSheetRow(historySheet, "A1", &historyHeaders); err != nil {
		return fmt.Errorf("writing history headers: %w", err)
	}
	if err := f.SetCellStyle(historySheet, "A1", "J1", headerStyle); err != nil {
		return fmt.Errorf("styling history headers: %w", err)
	}

	for i, tx := range txs {
		status := "Success"
		if !tx.Successful {
			status = "Failed"
		}
		row := []any{
			tx.Date, tx.Type, tx.Amount, tx.Asset, tx.From, tx.To, tx.Memo, tx.Fee, status, tx.Hash,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("computing row cell: %w", err)
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			return fmt.Errorf("writing history row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(historySheet, "A", "A", 22); err != nil {
		return fmt.Errorf("sizing date column: %w", err)
	}
	if err := f.SetColWidth(historySheet, "E", "F", 30); err != nil {
		return fmt.Errorf("sizing address columns: %w", err)
	}
	if err := f.SetColWidth(historySheet, "J", "J", 40); err != nil {
		return fmt.Errorf("sizing hash column: %w", err)
	}

	if err := writeSummary(f, stats, headerStyle); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, stats history.Stats, headerStyle int) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}

	rows := [][]any{
		{"Total Transactions", stats.Total},
		{"Successful", stats.Successful},
		{"Failed", stats.Failed},
		{"Total Fees (XLM)", stats.TotalFees},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("computing summary cell: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "A4", headerStyle); err != nil {
		return fmt.Errorf("styling summary labels: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("sizing summary column: %w", err)
	}
	return nil
}
