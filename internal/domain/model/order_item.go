package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnitPriceは追加時点の価格（後から商品価格が変わっても変えない）
type OrderItem struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID        string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	LineNo         int             `gorm:"not null;default:0" json:"-"` // 注文内の並び順
	ProductID      int64           `gorm:"not null;index" json:"product_id"`
	Product        *Product        `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Quantity       int64           `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 数量×単価 − 明細値引き
func (it OrderItem) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)).Sub(it.DiscountAmount)
}
