package repository

import (
	"context"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 顧客・明細（並び順どおり）・商品まで読む
func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_no asc").Order("id asc")
		}).
		Preload("Items.Product")
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	var o model.Order
	err := withDetails(r.db.WithContext(ctx)).Where("id = ?", orderID).First(&o).Error
	if err != nil {
		return model.Order{}, translateError(err)
	}
	return o, nil
}

// SELECT ... FOR UPDATE で注文行をロックしてから中身を読む
func (r *OrderGormRepository) LockByID(ctx context.Context, orderID string) (model.Order, error) {
	var locked model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", orderID).
		First(&locked).Error
	if err != nil {
		return model.Order{}, translateError(err)
	}
	return r.FindByID(ctx, orderID)
}

func (r *OrderGormRepository) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	q := r.db.WithContext(ctx).Model(&model.Order{})

	//status 絞り込み
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	//customer_id 絞り込み
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (f.Page - 1) * f.Limit
	if err := withDetails(q).Order("order_date desc").Order("id asc").Limit(f.Limit).Offset(offset).Find(&items).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

// 顧客名の完全一致（大文字小文字は無視）
func (r *OrderGormRepository) ListByCustomerName(ctx context.Context, name string) ([]model.Order, error) {
	var items []model.Order
	err := withDetails(r.db.WithContext(ctx)).
		Joins("JOIN customers ON customers.id = orders.customer_id").
		Where("UPPER(customers.name) = UPPER(?)", name).
		Order("orders.order_date desc").
		Order("orders.id asc").
		Find(&items).Error
	if err != nil {
		return []model.Order{}, err
	}
	return items, nil
}

// 関連は保存しない（明細は OrderItemGormRepository）
func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&order).Error; err != nil {
		return translateError(err)
	}
	return nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *OrderGormRepository) Delete(ctx context.Context, orderID string) error {
	db := r.db.WithContext(ctx)

	//明細 → 注文の順で消す
	if err := db.Where("order_id = ?", orderID).Delete(&model.OrderItem{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", orderID).Delete(&model.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
