package export

import (
	"fmt"
	"io"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/xuri/excelize/v2"
)

const ledgerSheet = "Ledger"

var ledgerHeader = []interface{}{
	"id", "user_id", "kind", "amount", "description", "receipt_id", "invoice_id", "created_at",
}

// WriteTransactions renders ledger rows as a single-sheet workbook.
func WriteTransactions(w io.Writer, rows []*model.WalletTransaction) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, ledgerSheet); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}

	header := ledgerHeader
	if err := f.SetSheetRow(ledgerSheet, "A1", &header); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}

	row := 2
	for _, t := range rows {
		excelRow := []interface{}{
			t.ID,
			t.UserID,
			string(t.Kind),
			t.Amount.InexactFloat64(),
			t.Description,
			deref(t.ReceiptID),
			deref(t.InvoiceID),
			t.CreatedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("export: cell: %w", err)
		}
		if err := f.SetSheetRow(ledgerSheet, cell, &excelRow); err != nil {
			return fmt.Errorf("export: row %d: %w", row, err)
		}
		row++
	}

	if err := f.SetColWidth(ledgerSheet, "A", "H", 22); err != nil {
		return fmt.Errorf("export: widths: %w", err)
	}
	if err := f.SetPanes(ledgerSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("export: panes: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
