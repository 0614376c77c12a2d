//go:build !integration

package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/abdulbosit19980204/journal/internal/domain"

	"github.com/jackc/pgconn"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		code  string
		retry bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, "40001", true},
		{"deadlock behind opErr", opErr(&pgconn.PgError{Code: "40P01"}), "40P01", true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, "", false},
		{"domain error", domain.ErrInsufficientBalance, "", false},
		{"nil", nil, "", false},
		{"wrapped", fmt.Errorf("subscribe: %w", &pgconn.PgError{Code: "40001"}), "40001", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, retry := retryable(tc.err)
			if code != tc.code || retry != tc.retry {
				t.Fatalf("retryable = %q %v, want %q %v", code, retry, tc.code, tc.retry)
			}
		})
	}
}

func TestOpErrKeepsClassification(t *testing.T) {
	err := opErr(errors.New("connection reset"))
	if !errors.Is(err, domain.ErrOperationFailed) {
		t.Fatalf("expected ErrOperationFailed, got %v", err)
	}
	if got := opErr(domain.ErrInvalidExecContext); got != domain.ErrInvalidExecContext {
		t.Fatalf("execution-context errors pass through, got %v", got)
	}
}
