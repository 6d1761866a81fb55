package repository

import (
	"context"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]model.OrderItem, len(items))
	copy(rows, items)
	for i := range rows {
		rows[i].OrderID = orderID
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderItemGormRepository) Create(ctx context.Context, item model.OrderItem) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&item).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderItemGormRepository) UpdateQuantity(ctx context.Context, itemID string, qty int64) error {
	res := r.db.WithContext(ctx).Model(&model.OrderItem{}).
		Where("id = ?", itemID).
		Update("quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderItemGormRepository) Delete(ctx context.Context, itemID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&model.OrderItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
