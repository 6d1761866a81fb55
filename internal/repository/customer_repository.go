package repository

import (
	"context"

	"orderapp/internal/domain/model"
)

type CustomerRepository interface {
	List(ctx context.Context) ([]model.Customer, error)
	ListByName(ctx context.Context, name string) ([]model.Customer, error)
	FindByID(ctx context.Context, id string) (model.Customer, error)
	Create(ctx context.Context, c model.Customer) error
	Update(ctx context.Context, c model.Customer) error
	Delete(ctx context.Context, id string) error

	// 注文を持っているか
	HasOrders(ctx context.Context, id string) (bool, error)
}
