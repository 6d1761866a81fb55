package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

const (
	EventOrderCreated       = "order.created"
	EventOrderItemAdded     = "order.item_added"
	EventOrderItemUpdated   = "order.item_updated"
	EventOrderItemRemoved   = "order.item_removed"
	EventOrderDeleted       = "order.deleted"
	EventOrderStatusChanged = "order.status_changed"
)

// コミット後に外へ流す注文イベント
type OrderEvent struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// ブローカー未設定のとき
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
