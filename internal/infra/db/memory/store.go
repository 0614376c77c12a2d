// Package memory is an in-process implementation of the repository ports.
// It backs dev mode and unit tests and mirrors the Postgres semantics that
// the use cases rely on: row locks held until the transaction ends, guarded
// status updates, and all-or-nothing commits.
package memory

import (
	"context"
	"sync"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	wallet   []*model.WalletTransaction
	receipts map[string]*model.PaymentReceipt
	invoices map[string]*model.Invoice
	plans    map[string]*model.SubscriptionPlan
	subs     map[string]*model.UserSubscription // keyed by user id
	history  []*model.SubscriptionHistory

	lockMu   sync.Mutex
	rowLocks map[string]chan struct{}
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		receipts: make(map[string]*model.PaymentReceipt),
		invoices: make(map[string]*model.Invoice),
		plans:    make(map[string]*model.SubscriptionPlan),
		subs:     make(map[string]*model.UserSubscription),
		rowLocks: make(map[string]chan struct{}),
	}
}

// memTx is the handle passed to repositories inside WithTx.
type memTx struct {
	store *Store
	held  map[string]chan struct{}
	undo  []func()
}

var _ repository.TransactionManager = (*TxManager)(nil)

type TxManager struct{ store *Store }

func NewTxManager(s *Store) *TxManager { return &TxManager{store: s} }

// WithTx runs fn with a fresh transaction. Writes made through tx are undone
// if fn fails or panics; row locks are released when WithTx returns.
func (m *TxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) (err error) {
	tx := &memTx{store: m.store, held: make(map[string]chan struct{})}
	defer tx.release()
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (t *memTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *memTx) release() {
	for key, ch := range t.held {
		<-ch
		delete(t.held, key)
	}
}

func asTx(tx repository.Tx) (*memTx, error) {
	switch v := tx.(type) {
	case nil:
		return nil, nil
	case *memTx:
		return v, nil
	default:
		return nil, domain.ErrInvalidExecContext
	}
}

// lockRow blocks until tx owns key or ctx is done. Re-entrant per tx.
func (s *Store) lockRow(ctx context.Context, tx *memTx, key string) error {
	if _, ok := tx.held[key]; ok {
		return nil
	}
	s.lockMu.Lock()
	ch, ok := s.rowLocks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[key] = ch
	}
	s.lockMu.Unlock()

	select {
	case ch <- struct{}{}:
		tx.held[key] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// write applies a mutation under the store lock and, inside a transaction,
// records the returned undo step.
func (s *Store) write(tx repository.Tx, apply func() (undo func())) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	undo := apply()
	if mt != nil && undo != nil {
		mt.undo = append(mt.undo, undo)
	}
	return nil
}

func (s *Store) read(tx repository.Tx, fn func()) error {
	if _, err := asTx(tx); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
	return nil
}

func strPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
