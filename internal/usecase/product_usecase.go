package usecase

import (
	"context"
	"errors"
	"strings"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	tx  repo.TransactionManager
	log *zap.Logger
}

// DI
func NewProductUsecase(tx repo.TransactionManager, log *zap.Logger) *ProductUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductUsecase{tx: tx, log: log.Named("product")}
}

// GET /products の入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
	Sort  string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type CreateProductInput struct {
	Name          string
	Price         decimal.Decimal
	StockQuantity int64
}

// 在庫は注文でしか変えないので入れない
type UpdateProductInput struct {
	Name  string
	Price decimal.Decimal
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, validationField("page", "Page must be 1 or greater.")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, validationField("limit", "Limit must be between 1 and 100.")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, validationField("q", "Search text must be 100 characters or fewer.")
	}
	switch in.Sort {
	case "", "new", "name", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, validationField("sort", "Sort must be one of new, name, price_asc, price_desc.")
	}

	var out ProductListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Products().List(ctx, repo.ProductListQuery{
			Page:  in.Page,
			Limit: in.Limit,
			Q:     strings.TrimSpace(in.Q),
			Sort:  in.Sort,
		})
		if err != nil {
			return internalError(err)
		}
		out = ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	var p model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeProductNotFound, "Product with ID %d not found.", productID)
		}
		if err != nil {
			return internalError(err)
		}
		p = found
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 同名の商品があり得るので一覧で返す
func (u *ProductUsecase) FindProductsByName(ctx context.Context, name string) ([]model.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationField("name", "Product name is required.")
	}

	var items []model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		found, err := r.Products().ListByName(ctx, name)
		if err != nil {
			return internalError(err)
		}
		items = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (u *ProductUsecase) CreateProduct(ctx context.Context, in CreateProductInput) (model.Product, error) {
	if !in.Price.IsPositive() {
		return model.Product{}, validationField("price", "Price must be greater than zero.")
	}
	if in.StockQuantity < 0 {
		return model.Product{}, validationField("stock_quantity", "Stock quantity cannot be negative.")
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().Create(ctx, model.Product{
			Name:          strings.TrimSpace(in.Name),
			Price:         in.Price,
			StockQuantity: in.StockQuantity,
		})
		if err != nil {
			return internalError(err)
		}
		created = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	u.log.Info("product created", zap.Int64("product_id", created.ID))
	return created, nil
}

func (u *ProductUsecase) UpdateProduct(ctx context.Context, productID int64, in UpdateProductInput) error {
	if !in.Price.IsPositive() {
		return validationField("price", "Price must be greater than zero.")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Products().Update(ctx, model.Product{
			ID:    productID,
			Name:  strings.TrimSpace(in.Name),
			Price: in.Price,
		})
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeProductNotFound, "Product with ID %d not found.", productID)
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("product updated", zap.Int64("product_id", productID))
	return nil
}

// 注文明細に使われている商品は消せない
func (u *ProductUsecase) DeleteProduct(ctx context.Context, productID int64) error {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(CodeProductNotFound, "Product with ID %d not found.", productID)
			}
			return internalError(err)
		}

		used, err := r.Products().IsReferenced(ctx, productID)
		if err != nil {
			return internalError(err)
		}
		if used {
			return productInUse()
		}

		err = r.Products().Delete(ctx, productID)
		//チェック後に参照された場合はFK違反で返ってくる
		if errors.Is(err, repo.ErrReferenced) {
			return productInUse()
		}
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeProductNotFound, "Product with ID %d not found.", productID)
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("product deleted", zap.Int64("product_id", productID))
	return nil
}

func productInUse() error {
	return businessRule(CodeProductInUse, "This product cannot be deleted as it is part of one or more existing orders.")
}
