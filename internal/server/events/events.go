// Package events announces account and order changes to other systems.
// Publishing is best effort: failures are logged and never fail the
// operation that raised the event.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/models"
)

const (
	TypeAccountRegistered = "account.registered"
	TypeOrderCreated      = "order.created"
	TypeOrderUpdated      = "order.updated"
	TypeOrderDeleted      = "order.deleted"
)

// Event is the JSON payload written for every change.
type Event struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data,omitempty"`
}

type Publisher interface {
	AccountRegistered(ctx context.Context, account *models.Account)
	OrderSaved(ctx context.Context, order *models.Order, update bool)
	OrderDeleted(ctx context.Context, orderID int64)
	Close() error
}

// sink delivers one encoded event.
type sink interface {
	send(ctx context.Context, e Event) error
}

// publisher turns domain values into Events and hands them to a sink.
type publisher struct {
	sink sink
	log  logging.Logger
	now  func() time.Time
}

func (p *publisher) AccountRegistered(ctx context.Context, account *models.Account) {
	if account == nil || account.CustomerInfo == nil {
		return
	}
	p.publish(ctx, TypeAccountRegistered, strconv.FormatInt(account.CustomerInfo.CustID, 10), account)
}

func (p *publisher) OrderSaved(ctx context.Context, order *models.Order, update bool) {
	if order == nil {
		return
	}
	t := TypeOrderCreated
	if update {
		t = TypeOrderUpdated
	}
	p.publish(ctx, t, strconv.FormatInt(order.OrderID, 10), order)
}

func (p *publisher) OrderDeleted(ctx context.Context, orderID int64) {
	p.publish(ctx, TypeOrderDeleted, strconv.FormatInt(orderID, 10), nil)
}

func (p *publisher) publish(ctx context.Context, eventType, key string, data any) {
	e := Event{Type: eventType, Key: key, OccurredAt: p.now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			p.log.Error(ctx, "failed to encode event", "type", eventType, "key", key, "error", err)
			return
		}
		e.Data = raw
	}
	if err := p.sink.send(ctx, e); err != nil {
		p.log.Error(ctx, "failed to publish event", "type", eventType, "key", key, "error", err)
	}
}

type logSink struct {
	log logging.Logger
}

func (s logSink) send(ctx context.Context, e Event) error {
	s.log.Info(ctx, "event", "type", e.Type, "key", e.Key)
	return nil
}

// LogPublisher only logs events. Used when no brokers are configured.
type LogPublisher struct {
	publisher
}

func NewLogPublisher(log logging.Logger) *LogPublisher {
	log = log.With("module", "events")
	return &LogPublisher{publisher{sink: logSink{log: log}, log: log, now: time.Now}}
}

func (p *LogPublisher) Close() error { return nil }
