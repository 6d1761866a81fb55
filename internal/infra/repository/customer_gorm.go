package repository

import (
	"context"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"

	"gorm.io/gorm"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

func (r *CustomerGormRepository) List(ctx context.Context) ([]model.Customer, error) {
	var items []model.Customer
	if err := r.db.WithContext(ctx).Order("name asc").Order("id asc").Find(&items).Error; err != nil {
		return []model.Customer{}, err
	}
	return items, nil
}

// 名前の完全一致（大文字小文字は無視）
func (r *CustomerGormRepository) ListByName(ctx context.Context, name string) ([]model.Customer, error) {
	var items []model.Customer
	err := r.db.WithContext(ctx).
		Where("UPPER(name) = UPPER(?)", name).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.Customer{}, err
	}
	return items, nil
}

func (r *CustomerGormRepository) FindByID(ctx context.Context, id string) (model.Customer, error) {
	var c model.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return model.Customer{}, translateError(err)
	}
	return c, nil
}

func (r *CustomerGormRepository) Create(ctx context.Context, c model.Customer) error {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// nilの住所/電話番号もそのまま書く（クリアできるように）
func (r *CustomerGormRepository) Update(ctx context.Context, c model.Customer) error {
	res := r.db.WithContext(ctx).Model(&model.Customer{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":         c.Name,
		"address":      c.Address,
		"phone_number": c.PhoneNumber,
	})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.Customer{}).Where("id = ?", c.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return repo.ErrNotFound
		}
	}
	return nil
}

func (r *CustomerGormRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Customer{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CustomerGormRepository) HasOrders(ctx context.Context, id string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("customer_id = ?", id).
		Limit(1).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
