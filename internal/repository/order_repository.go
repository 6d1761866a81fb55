package repository

import (
	"context"

	"orderapp/internal/domain/model"
)

type OrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID string
}

// 取得系は明細・商品・顧客まで読み込んで返す
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	// 行ロック付きで取得（同じ注文への更新を直列化）
	LockByID(ctx context.Context, orderID string) (model.Order, error)
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
	ListByCustomerName(ctx context.Context, name string) ([]model.Order, error)

	// 明細は OrderItemRepository で作る
	Create(ctx context.Context, order model.Order) error
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	// 明細ごと削除
	Delete(ctx context.Context, orderID string) error
}
