package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ adapter.GatewayRegistry = (*Registry)(nil)

// Registry resolves provider ids to gateways. Every registered gateway is
// wrapped so that remote calls are bounded by a timeout.
type Registry struct {
	gateways map[string]adapter.PaymentGateway
	order    []adapter.GatewayInfo
}

// NewRegistry builds the gateways enabled in cfg.
func NewRegistry(cfg config.PaymentConfig, timeout time.Duration, logger *zerolog.Logger) (*Registry, error) {
	var gws []adapter.PaymentGateway
	if cfg.Click.Enabled {
		g, err := NewClickGateway(cfg.Click)
		if err != nil {
			return nil, err
		}
		gws = append(gws, g)
	}
	if cfg.Payme.Enabled {
		g, err := NewPaymeGateway(cfg.Payme)
		if err != nil {
			return nil, err
		}
		gws = append(gws, g)
	}
	if cfg.Stripe.Enabled {
		g, err := NewStripeGateway(cfg.Stripe)
		if err != nil {
			return nil, err
		}
		gws = append(gws, g)
	}
	if cfg.Noop.Enabled {
		gws = append(gws, NewNoopPaymentGateway(cfg.Noop.Token))
	}
	return NewRegistryWith(timeout, logger, gws...), nil
}

// NewRegistryWith registers the given gateways in order.
func NewRegistryWith(timeout time.Duration, logger *zerolog.Logger, gws ...adapter.PaymentGateway) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Registry{gateways: make(map[string]adapter.PaymentGateway, len(gws))}
	for _, g := range gws {
		id := strings.ToLower(g.ID())
		if _, dup := r.gateways[id]; dup {
			continue
		}
		r.gateways[id] = &timeoutGateway{PaymentGateway: g, timeout: timeout, log: logger}
		r.order = append(r.order, adapter.GatewayInfo{ID: id, Name: g.Name()})
	}
	return r
}

func (r *Registry) Resolve(providerID string) (adapter.PaymentGateway, error) {
	g, ok := r.gateways[strings.ToLower(strings.TrimSpace(providerID))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, providerID)
	}
	return g, nil
}

func (r *Registry) ListAvailable() []adapter.GatewayInfo {
	out := make([]adapter.GatewayInfo, len(r.order))
	copy(out, r.order)
	return out
}

// timeoutGateway bounds remote calls. Errors and timeouts are reported as
// unsuccessful results so callers never block on a slow provider.
// ProcessCallback and Acknowledge are local and pass through.
type timeoutGateway struct {
	adapter.PaymentGateway
	timeout time.Duration
	log     *zerolog.Logger
}

type callResult struct {
	res adapter.PaymentResult
	err error
}

func (g *timeoutGateway) call(ctx context.Context, op, ref string, fn func(ctx context.Context) (adapter.PaymentResult, error)) (adapter.PaymentResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan callResult, 1)
	go func() {
		res, err := fn(ctx)
		done <- callResult{res: res, err: err}
	}()

	select {
	case out := <-done:
		metrics.ObserveGatewayCall(g.ID(), op, out.err == nil && out.res.Success, time.Since(start))
		if out.err != nil {
			g.log.Warn().Err(out.err).Str("provider", g.ID()).Str("op", op).Str("ref", ref).Msg("gateway call failed")
			return adapter.Failed(ref, out.err.Error()), nil
		}
		return out.res, nil
	case <-ctx.Done():
		metrics.ObserveGatewayCall(g.ID(), op, false, time.Since(start))
		metrics.IncGatewayTimeout(g.ID(), op)
		g.log.Warn().Str("provider", g.ID()).Str("op", op).Str("ref", ref).Dur("after", time.Since(start)).Msg("gateway call timed out")
		return adapter.Failed(ref, "gateway timeout"), nil
	}
}

func (g *timeoutGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error) {
	return g.call(ctx, "create", req.OrderID, func(ctx context.Context) (adapter.PaymentResult, error) {
		return g.PaymentGateway.CreatePayment(ctx, req)
	})
}

func (g *timeoutGateway) VerifyPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	return g.call(ctx, "verify", transactionID, func(ctx context.Context) (adapter.PaymentResult, error) {
		return g.PaymentGateway.VerifyPayment(ctx, transactionID)
	})
}

func (g *timeoutGateway) CancelPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	return g.call(ctx, "cancel", transactionID, func(ctx context.Context) (adapter.PaymentResult, error) {
		return g.PaymentGateway.CancelPayment(ctx, transactionID)
	})
}

func (g *timeoutGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (adapter.PaymentResult, error) {
	return g.call(ctx, "refund", transactionID, func(ctx context.Context) (adapter.PaymentResult, error) {
		return g.PaymentGateway.RefundPayment(ctx, transactionID, amount)
	})
}
