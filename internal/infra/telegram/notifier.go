package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// sender is the part of *tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

var _ adapter.AdminNotifier = (*AdminNotifier)(nil)

// AdminNotifier posts billing events to the configured admin chats.
type AdminNotifier struct {
	bot     sender
	chatIDs []int64
	log     *zerolog.Logger
}

// NewAdminNotifier returns a NoopNotifier when no token or chat is configured.
func NewAdminNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (adapter.AdminNotifier, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.Token == "" || len(cfg.AdminChatIDs) == 0 {
		return NewNoopNotifier(logger), nil
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newAdminNotifier(bot, cfg.AdminChatIDs, logger), nil
}

func newAdminNotifier(bot sender, chatIDs []int64, logger *zerolog.Logger) *AdminNotifier {
	l := logger.With().Str("component", "AdminNotifier").Logger()
	return &AdminNotifier{bot: bot, chatIDs: chatIDs, log: &l}
}

func (n *AdminNotifier) ReceiptSubmitted(ctx context.Context, r *model.PaymentReceipt) error {
	var b strings.Builder
	fmt.Fprintf(&b, "New receipt awaiting review\n")
	fmt.Fprintf(&b, "Receipt: %s\n", r.ID)
	fmt.Fprintf(&b, "User: %s\n", r.UserID)
	fmt.Fprintf(&b, "Amount: %s", r.Amount.StringFixed(2))
	return n.broadcast(ctx, b.String())
}

func (n *AdminNotifier) InvoicePaid(ctx context.Context, inv *model.Invoice) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice paid\n")
	fmt.Fprintf(&b, "Order: %s\n", inv.OrderID())
	fmt.Fprintf(&b, "User: %s\n", inv.UserID)
	fmt.Fprintf(&b, "Amount: %s %s\n", inv.Amount.StringFixed(2), inv.Currency)
	fmt.Fprintf(&b, "Provider: %s", inv.Provider)
	if inv.Purpose == model.InvoicePurposeSubscription && inv.PlanID != nil {
		fmt.Fprintf(&b, "\nPlan: %s", *inv.PlanID)
	}
	return n.broadcast(ctx, b.String())
}

// broadcast tries every chat and joins the failures.
func (n *AdminNotifier) broadcast(ctx context.Context, text string) error {
	var errs []error
	for _, id := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", id).Msg("telegram send failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier logs events instead of sending them.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) ReceiptSubmitted(ctx context.Context, r *model.PaymentReceipt) error {
	n.log.Debug().Str("receipt_id", r.ID).Msg("receipt submitted (notifications disabled)")
	return nil
}

func (n *NoopNotifier) InvoicePaid(ctx context.Context, inv *model.Invoice) error {
	n.log.Debug().Str("invoice_id", inv.ID).Msg("invoice paid (notifications disabled)")
	return nil
}
