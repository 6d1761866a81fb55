package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// 大文字小文字は区別しない
func ParseOrderStatus(s string) (OrderStatus, bool) {
	v := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range orderStatuses {
		if st == v {
			return st, true
		}
	}
	return "", false
}

func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

type Order struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	CustomerID     string          `gorm:"type:varchar(36);not null;index" json:"customer_id"`
	Customer       *Customer       `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	OrderDate      time.Time       `gorm:"not null;index" json:"order_date"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount_amount"`
	Items          []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// Σ 数量×単価（値引き前）
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return sum
}

// Σ 明細合計 − 注文値引き
func (o Order) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum.Sub(o.DiscountAmount)
}

func (o *Order) FindItem(itemID string) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], true
		}
	}
	return nil, false
}

// 次に追加する明細の並び順
func (o Order) NextLineNo() int {
	last := 0
	for _, it := range o.Items {
		if it.LineNo > last {
			last = it.LineNo
		}
	}
	return last + 1
}

func (o *Order) FindItemByProduct(productID int64) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i], true
		}
	}
	return nil, false
}
