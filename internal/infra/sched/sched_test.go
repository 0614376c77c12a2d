//go:build !integration

package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/usecase"
)

type mockPaymentUC struct {
	usecase.PaymentUseCase
	ReconcilePendingFunc func(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

func (m *mockPaymentUC) ReconcilePending(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	return m.ReconcilePendingFunc(ctx, olderThan, limit)
}

type mockSubscriptionUC struct {
	usecase.SubscriptionUseCase
	ExpireLapsedFunc func(ctx context.Context, limit int) (int, error)
}

func (m *mockSubscriptionUC) ExpireLapsed(ctx context.Context, limit int) (int, error) {
	return m.ExpireLapsedFunc(ctx, limit)
}

type mockLocker struct {
	lockErr  error
	locked   []string
	unlocked []string
}

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.lockErr != nil {
		return "", m.lockErr
	}
	m.locked = append(m.locked, key)
	return "token-1", nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.unlocked = append(m.unlocked, key+"/"+token)
	return nil
}

func TestPaymentReconciler_Tick(t *testing.T) {
	t.Run("passes the stale cutoff and releases the lock", func(t *testing.T) {
		var gotCutoff time.Time
		var gotLimit int
		uc := &mockPaymentUC{ReconcilePendingFunc: func(ctx context.Context, olderThan time.Time, limit int) (int, error) {
			gotCutoff, gotLimit = olderThan, limit
			return 2, nil
		}}
		locker := &mockLocker{}
		w := NewPaymentReconciler(uc, locker, time.Minute, 10*time.Minute, nil)

		before := time.Now()
		w.tick(context.Background())

		if gotLimit != reconcileBatch {
			t.Errorf("expected limit %d, got %d", reconcileBatch, gotLimit)
		}
		if d := before.Sub(gotCutoff); d < 10*time.Minute || d > 11*time.Minute {
			t.Errorf("unexpected cutoff offset %s", d)
		}
		if len(locker.locked) != 1 || locker.locked[0] != "sweep:reconcile" {
			t.Errorf("unexpected locks %v", locker.locked)
		}
		if len(locker.unlocked) != 1 || locker.unlocked[0] != "sweep:reconcile/token-1" {
			t.Errorf("lock not released: %v", locker.unlocked)
		}
	})

	t.Run("skips when another instance holds the lock", func(t *testing.T) {
		called := false
		uc := &mockPaymentUC{ReconcilePendingFunc: func(ctx context.Context, olderThan time.Time, limit int) (int, error) {
			called = true
			return 0, nil
		}}
		w := NewPaymentReconciler(uc, &mockLocker{lockErr: domain.ErrLockNotAcquired}, 0, 0, nil)
		w.tick(context.Background())
		if called {
			t.Error("reconcile must not run without the lock")
		}
	})

	t.Run("runs without a locker", func(t *testing.T) {
		called := false
		uc := &mockPaymentUC{ReconcilePendingFunc: func(ctx context.Context, olderThan time.Time, limit int) (int, error) {
			called = true
			return 0, errors.New("db down")
		}}
		w := NewPaymentReconciler(uc, nil, 0, 0, nil)
		w.tick(context.Background())
		if !called {
			t.Error("expected reconcile to run")
		}
	})
}

func TestExpiryWorker_RunStopsOnCancel(t *testing.T) {
	var calls int32
	uc := &mockSubscriptionUC{ExpireLapsedFunc: func(ctx context.Context, limit int) (int, error) {
		if limit != expiryBatch {
			t.Errorf("expected limit %d, got %d", expiryBatch, limit)
		}
		atomic.AddInt32(&calls, 1)
		return 1, nil
	}}
	w := NewExpiryWorker(5*time.Millisecond, uc, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("worker did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
