package poller

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	CheckoutTopic = "checkout-outbox"
	consumerGroup = "storefront-cart"
)

// MessageReader is the part of *kafka.Reader the poller uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartClearer empties the local cart.
type CartClearer interface {
	ClearCart(ctx context.Context)
}

type checkoutEvent struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// Poller clears the shopper's cart once checkout for that shopper completes.
type Poller struct {
	reader MessageReader
	cart   CartClearer
	userID string
	logger *zap.Logger
}

func NewPoller(cart CartClearer, userID string, logger *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    CheckoutTopic,
		GroupID:  consumerGroup,
		MaxBytes: 10e6, // 10MB
	})
	return NewPollerWithReader(reader, cart, userID, logger)
}

func NewPollerWithReader(reader MessageReader, cart CartClearer, userID string, logger *zap.Logger) *Poller {
	return &Poller{reader: reader, cart: cart, userID: userID, logger: logger}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.readAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (p *Poller) readAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			p.logger.Warn("error reading checkout message", zap.Error(err))
		}
		return
	}
	p.handle(ctx, m)
}

func (p *Poller) handle(ctx context.Context, m kafka.Message) {
	var event checkoutEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing checkout message", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if event.UserID == "" {
		p.logger.Warn("checkout message without user_id", zap.Int64("offset", m.Offset))
		return
	}
	if event.UserID != p.userID {
		return
	}

	p.cart.ClearCart(ctx)
	p.logger.Info("cart cleared after checkout",
		zap.String("checkout_id", event.CheckoutID),
		zap.String("user_id", event.UserID))
}
