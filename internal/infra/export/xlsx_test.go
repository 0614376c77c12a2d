//go:build !integration

package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestWriteTransactions(t *testing.T) {
	receipt := "r-1"
	rows := []*model.WalletTransaction{
		{
			ID:          "01HX",
			UserID:      "u-1",
			Amount:      decimal.RequireFromString("150.25"),
			Kind:        model.TransactionKindTopUp,
			Description: "Receipt approved",
			ReceiptID:   &receipt,
			CreatedAt:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:        "01HY",
			UserID:    "u-1",
			Amount:    decimal.RequireFromString("-25"),
			Kind:      model.TransactionKindPublishFee,
			CreatedAt: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteTransactions(&buf, rows); err != nil {
		t.Fatalf("WriteTransactions: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(ledgerSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(got))
	}
	if got[0][0] != "id" || got[0][3] != "amount" {
		t.Errorf("unexpected header %v", got[0])
	}
	if got[1][2] != "TOP_UP" || got[1][3] != "150.25" || got[1][5] != "r-1" || got[1][7] != "2026-03-14T10:00:00Z" {
		t.Errorf("unexpected first row %v", got[1])
	}
	if got[2][3] != "-25" {
		t.Errorf("expected -25, got %q", got[2][3])
	}
}

func TestWriteTransactions_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTransactions(&buf, nil); err != nil {
		t.Fatalf("WriteTransactions: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a workbook even without rows")
	}
}
