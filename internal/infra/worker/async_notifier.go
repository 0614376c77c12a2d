package worker

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
)

var _ adapter.AdminNotifier = (*AsyncNotifier)(nil)

const notifyTimeout = 15 * time.Second

// AsyncNotifier hands notifications to the pool so a slow chat API never
// delays a provider acknowledgement. Delivery stays best-effort: a full
// queue is reported to the caller, which only logs it.
type AsyncNotifier struct {
	next adapter.AdminNotifier
	pool *Pool
}

func NewAsyncNotifier(next adapter.AdminNotifier, pool *Pool) *AsyncNotifier {
	return &AsyncNotifier{next: next, pool: pool}
}

// detach keeps the trace id of the request but not its deadline.
func detach(ctx, base context.Context) (context.Context, context.CancelFunc) {
	out := base
	if tid := logging.TraceIDFrom(ctx); tid != "" {
		out = logging.WithTraceID(out, tid)
	}
	return context.WithTimeout(out, notifyTimeout)
}

func (n *AsyncNotifier) ReceiptSubmitted(ctx context.Context, r *model.PaymentReceipt) error {
	cp := *r
	return n.pool.Submit(func(poolCtx context.Context) error {
		c, cancel := detach(ctx, poolCtx)
		defer cancel()
		return n.next.ReceiptSubmitted(c, &cp)
	})
}

func (n *AsyncNotifier) InvoicePaid(ctx context.Context, inv *model.Invoice) error {
	cp := *inv
	return n.pool.Submit(func(poolCtx context.Context) error {
		c, cancel := detach(ctx, poolCtx)
		defer cancel()
		return n.next.InvoicePaid(c, &cp)
	})
}
