package repository

import (
	"context"

	"orderapp/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error
	Create(ctx context.Context, item model.OrderItem) error
	UpdateQuantity(ctx context.Context, itemID string, qty int64) error
	Delete(ctx context.Context, itemID string) error
}
