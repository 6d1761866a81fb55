package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"orderapp/internal/infra/memory"
	repo "orderapp/internal/repository"
	"orderapp/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProductUsecase_CRUD(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewProductUsecase(store, nil)
	ctx := context.Background()

	created, err := uc.CreateProduct(ctx, usecase.CreateProductInput{
		Name:          "  Pen ",
		Price:         decimal.RequireFromString("1.50"),
		StockQuantity: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Pen", created.Name)
	assert.Equal(t, int64(7), created.StockQuantity)

	got, err := uc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.5")))

	// 在庫は更新で変わらない
	require.NoError(t, uc.UpdateProduct(ctx, created.ID, usecase.UpdateProductInput{Name: "Blue Pen", Price: decimal.NewFromInt(2)}))
	got, err = uc.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Pen", got.Name)
	assert.Equal(t, int64(7), got.StockQuantity)

	found, err := uc.FindProductsByName(ctx, "blue pen")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, uc.DeleteProduct(ctx, created.ID))
	_, err = uc.GetProduct(ctx, created.ID)
	requireCode(t, err, usecase.ErrProductNotFound, http.StatusNotFound)
}

func TestProductUsecase_ListSortAndSearch(t *testing.T) {
	store := memory.NewStore()
	uc := usecase.NewProductUsecase(store, nil)
	ctx := context.Background()

	for _, in := range []usecase.CreateProductInput{
		{Name: "Notebook", Price: decimal.NewFromInt(5), StockQuantity: 1},
		{Name: "Pen", Price: decimal.NewFromInt(2), StockQuantity: 1},
		{Name: "Notepad", Price: decimal.NewFromInt(3), StockQuantity: 1},
	} {
		_, err := uc.CreateProduct(ctx, in)
		require.NoError(t, err)
	}

	out, err := uc.ListProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 10, Sort: "price_asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	assert.Equal(t, "Pen", out.Items[0].Name)

	out, err = uc.ListProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 1, Q: "note", Sort: "name"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "Notebook", out.Items[0].Name)

	cases := []usecase.ListProductsInput{
		{Page: 0, Limit: 10},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 10, Sort: "random"},
	}
	for _, in := range cases {
		_, err := uc.ListProducts(ctx, in)
		requireCode(t, err, usecase.ErrValidation, http.StatusBadRequest)
	}
}

func TestProductUsecase_Validation(t *testing.T) {
	uc := usecase.NewProductUsecase(memory.NewStore(), nil)
	ctx := context.Background()

	_, err := uc.CreateProduct(ctx, usecase.CreateProductInput{Name: "Pen", Price: decimal.Zero})
	requireCode(t, err, usecase.ErrValidation, http.StatusBadRequest)

	_, err = uc.CreateProduct(ctx, usecase.CreateProductInput{Name: "Pen", Price: decimal.NewFromInt(1), StockQuantity: -1})
	requireCode(t, err, usecase.ErrValidation, http.StatusBadRequest)

	err = uc.UpdateProduct(ctx, 1, usecase.UpdateProductInput{Name: "Pen", Price: decimal.NewFromInt(-1)})
	requireCode(t, err, usecase.ErrValidation, http.StatusBadRequest)

	err = uc.UpdateProduct(ctx, 42, usecase.UpdateProductInput{Name: "Pen", Price: decimal.NewFromInt(1)})
	requireCode(t, err, usecase.ErrProductNotFound, http.StatusNotFound)

	_, err = uc.FindProductsByName(ctx, "")
	requireCode(t, err, usecase.ErrValidation, http.StatusBadRequest)
}

func TestProductUsecase_DeleteInUse(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Pen", "10", 5)

	_, err := f.orders.CreateOrder(ctx, usecase.CreateOrderInput{
		CustomerID: f.customerID,
		Items:      []usecase.OrderItemInput{{ProductID: p, Quantity: 1}},
	})
	require.NoError(t, err)

	err = f.products.DeleteProduct(ctx, p)
	requireCode(t, err, usecase.ErrProductInUse, http.StatusBadRequest)

	err = f.products.DeleteProduct(ctx, 999)
	requireCode(t, err, usecase.ErrProductNotFound, http.StatusNotFound)
}

// チェック後に参照された場合（FK違反）も使用中扱い
func TestProductUsecase_DeleteReferencedAfterCheck(t *testing.T) {
	products := new(ProductRepoMock)
	tx := &TxManagerMock{Repos: &TxReposMock{products: products}}
	tx.On("WithinTx", mock.Anything).Return()
	uc := usecase.NewProductUsecase(tx, nil)
	ctx := context.Background()

	products.On("FindByID", ctx, int64(1)).Return(repoProduct(1), nil).Once()
	products.On("IsReferenced", ctx, int64(1)).Return(false, nil).Once()
	products.On("Delete", ctx, int64(1)).Return(repo.ErrReferenced).Once()

	err := uc.DeleteProduct(ctx, 1)
	requireCode(t, err, usecase.ErrProductInUse, http.StatusBadRequest)
	products.AssertExpectations(t)
}

func TestProductUsecase_ListFailureIsInternal(t *testing.T) {
	products := new(ProductRepoMock)
	tx := &TxManagerMock{Repos: &TxReposMock{products: products}}
	tx.On("WithinTx", mock.Anything).Return()
	uc := usecase.NewProductUsecase(tx, nil)
	ctx := context.Background()

	products.On("List", ctx, mock.Anything).Return(nil, int64(0), errors.New("timeout")).Once()

	_, err := uc.ListProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 10})
	requireCode(t, err, usecase.ErrInternal, http.StatusInternalServerError)
}
