//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/usecase"
)

func TestTransactionsUseCase_MergedView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addAdmin(t, "admin", false)
	f.addUser(t, "u1", "0")

	approved, _ := f.receipt.Submit(ctx, "u1", dec("30"), "a.png")
	if _, _, err := f.receipt.Approve(ctx, "admin", approved.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	rejected, _ := f.receipt.Submit(ctx, "u1", dec("5"), "b.png")
	_, _ = f.receipt.Reject(ctx, "admin", rejected.ID, "duplicate")
	time.Sleep(time.Millisecond)
	pending, _ := f.receipt.Submit(ctx, "u1", dec("7"), "c.png")

	views, err := f.txs.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("expected TOP_UP + 2 receipts, got %d: %+v", len(views), views)
	}
	if views[0].ID != pending.ID || views[0].Status != string(model.ReceiptStatusPending) || views[0].Type != usecase.TransactionTypeReceipt {
		t.Errorf("expected newest pending receipt first, got %+v", views[0])
	}
	seen := map[string]usecase.TransactionView{}
	for i, v := range views {
		if i > 0 && v.CreatedAt.After(views[i-1].CreatedAt) {
			t.Errorf("not reverse chronological at %d", i)
		}
		seen[v.Type+"/"+v.Status] = v
	}
	if v, ok := seen["TOP_UP/COMPLETED"]; !ok || !v.Amount.Equal(dec("30")) {
		t.Errorf("missing approved top-up row: %+v", seen)
	}
	if v, ok := seen["RECEIPT/REJECTED"]; !ok || v.Description != "Payment receipt: duplicate" {
		t.Errorf("missing rejected receipt row: %+v", seen)
	}
	if _, ok := seen["RECEIPT/APPROVED"]; ok {
		t.Error("approved receipts must not be listed twice")
	}
}
