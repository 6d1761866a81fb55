package repository

import (
	"context"
	"errors"

	"orderapp/internal/domain/model"
)

var (
	ErrNotFound = errors.New("not found")
	// 一意制約違反
	ErrConflict = errors.New("conflict")
	// 他の行から参照されていて消せない
	ErrReferenced = errors.New("referenced")
)

// 一覧検索
type ProductListQuery struct {
	Page  int
	Limit int
	Q     string
	Sort  string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	ListByName(ctx context.Context, name string) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// 名前と価格だけ更新（在庫は触らない）
	Update(ctx context.Context, p model.Product) error
	Delete(ctx context.Context, id int64) error

	// 注文明細から参照されているか
	IsReferenced(ctx context.Context, id int64) (bool, error)
}
