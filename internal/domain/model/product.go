package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 在庫は注文処理からしか変えない
type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity int64           `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
