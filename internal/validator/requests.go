package validator

import "github.com/shopspring/decimal"

// 商品の作成・更新で共通
type ProductFields struct {
	Name  string          `json:"name" validate:"required,min=2,max=100"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

type CreateProductRequest struct {
	ProductFields
	StockQuantity int64 `json:"stock_quantity" validate:"gte=0"`
}

// 在庫は注文でしか変えない
type UpdateProductRequest struct {
	ProductFields
}

// 顧客の作成・更新で共通
type CustomerFields struct {
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Address     *string `json:"address" validate:"omitempty,max=200"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=50,na_phone"`
}

type CustomerRequest struct {
	CustomerFields
}

type OrderItemRequest struct {
	ProductID      int64            `json:"product_id" validate:"gt=0"`
	Quantity       int64            `json:"quantity" validate:"gt=0"`
	DiscountAmount *decimal.Decimal `json:"discount_amount" validate:"omitempty,gte=0"`
}

type CreateOrderRequest struct {
	CustomerID     string             `json:"customer_id" validate:"required,uuid"`
	Items          []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount *decimal.Decimal   `json:"discount_amount" validate:"omitempty,gte=0"`
}

type UpdateOrderItemRequest struct {
	Quantity int64 `json:"quantity" validate:"gt=0"`
}

// 値の確認はusecase側（大文字小文字を区別しない）
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,strong_password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
