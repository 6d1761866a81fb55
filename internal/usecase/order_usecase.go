package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

type OrderUsecase struct {
	tx     repo.TransactionManager
	idGen  IDGenerator
	clock  Clock
	events EventPublisher
	log    *zap.Logger
	tracer trace.Tracer
}

func NewOrderUsecase(tx repo.TransactionManager, idGen IDGenerator, clock Clock, events EventPublisher, log *zap.Logger) *OrderUsecase {
	if events == nil {
		events = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderUsecase{
		tx:     tx,
		idGen:  idGen,
		clock:  clock,
		events: events,
		log:    log.Named("order"),
		tracer: otel.Tracer("orderapp/usecase/order"),
	}
}

type OrderItemInput struct {
	ProductID      int64
	Quantity       int64
	DiscountAmount *decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID     string
	Items          []OrderItemInput
	DiscountAmount *decimal.Decimal
}

type ListOrdersInput struct {
	Page       int
	Limit      int
	Status     string
	CustomerID string
}

type OrderItemOutput struct {
	ID             string          `json:"id"`
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int64           `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID             string            `json:"id"`
	CustomerID     string            `json:"customer_id"`
	CustomerName   string            `json:"customer_name,omitempty"`
	OrderDate      time.Time         `json:"order_date"`
	Status         string            `json:"status"`
	Items          []OrderItemOutput `json:"items"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Total          decimal.Decimal   `json:"total"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文作成：全明細の在庫を確保できたときだけコミット
func (u *OrderUsecase) CreateOrder(ctx context.Context, in CreateOrderInput) (out OrderOutput, err error) {
	ctx, span := u.tracer.Start(ctx, "order.create")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("customer.id", in.CustomerID),
		attribute.Int("order.item_count", len(in.Items)),
	)

	if len(in.Items) == 0 {
		return OrderOutput{}, validationField("items", "An order must contain at least one item.")
	}
	orderDiscount, err := discountOrZero("discount_amount", in.DiscountAmount)
	if err != nil {
		return OrderOutput{}, err
	}
	for i, it := range in.Items {
		if err := checkItemInput(fmt.Sprintf("items[%d].", i), it); err != nil {
			return OrderOutput{}, err
		}
	}

	u.log.Info("creating order", zap.String("customer_id", in.CustomerID))

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Customers().FindByID(ctx, in.CustomerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return notFound(CodeCustomerNotFound, "Customer with ID %s not found.", in.CustomerID)
			}
			return internalError(err)
		}

		now := u.clock.Now().UTC()
		order := model.Order{
			ID:             u.idGen.NewID(),
			CustomerID:     in.CustomerID,
			OrderDate:      now,
			Status:         model.OrderStatusPending,
			DiscountAmount: orderDiscount,
		}

		//呼び出し順に在庫確保（1件でも失敗したら全部ロールバック）
		items := make([]model.OrderItem, 0, len(in.Items))
		for i, it := range in.Items {
			p, err := u.reserve(ctx, r, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}

			discount, _ := discountOrZero("", it.DiscountAmount)
			item := model.OrderItem{
				ID:             u.idGen.NewID(),
				OrderID:        order.ID,
				LineNo:         i + 1,
				ProductID:      p.ID,
				Quantity:       it.Quantity,
				UnitPrice:      p.Price,
				DiscountAmount: discount,
				CreatedAt:      now,
			}
			if item.LineTotal().IsNegative() {
				return businessRule(CodeInvalidDiscount, "Discount for item %d cannot exceed its line amount.", i)
			}
			items = append(items, item)
		}

		order.Items = items
		if order.Total().IsNegative() {
			return businessRule(CodeInvalidDiscount, "Order discount cannot exceed the order total.")
		}

		if err := r.Orders().Create(ctx, order); err != nil {
			return internalError(err)
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, items); err != nil {
			return internalError(err)
		}

		saved, err := r.Orders().FindByID(ctx, order.ID)
		if err != nil {
			return internalError(err)
		}
		out = toOrderOutput(saved)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	span.SetAttributes(attribute.String("order.id", out.ID))
	u.log.Info("order created", zap.String("order_id", out.ID), zap.String("customer_id", out.CustomerID))
	u.publish(ctx, EventOrderCreated, out)
	return out, nil
}

// 明細追加：同じ商品があれば数量をまとめる（単価はそのまま）
func (u *OrderUsecase) AddItem(ctx context.Context, orderID string, in OrderItemInput) (out OrderOutput, err error) {
	ctx, span := u.tracer.Start(ctx, "order.add_item")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.Int64("product.id", in.ProductID),
		attribute.Int64("item.quantity", in.Quantity),
	)

	if err := checkItemInput("", in); err != nil {
		return OrderOutput{}, err
	}
	discount, _ := discountOrZero("", in.DiscountAmount)

	u.log.Info("adding item to order", zap.Int64("product_id", in.ProductID), zap.String("order_id", orderID))

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := u.lockOrder(ctx, r, orderID)
		if err != nil {
			return err
		}

		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeProductNotFound, "Product with ID %d not found.", in.ProductID)
		}
		if err != nil {
			return internalError(err)
		}

		existing, merge := order.FindItemByProduct(p.ID)
		if !merge && discount.GreaterThan(p.Price) {
			return businessRule(CodeInvalidDiscount, "Discount cannot exceed the product price.")
		}

		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, in.Quantity)
		if err != nil {
			return internalError(err)
		}
		if !ok {
			return insufficientStock(p.ID, p.StockQuantity, in.Quantity)
		}

		if merge {
			//既存明細への追加では値引きは使わない
			if discount.IsPositive() {
				u.log.Warn("discount ignored when merging into existing item",
					zap.String("order_item_id", existing.ID),
					zap.String("discount_amount", discount.String()),
				)
			}
			if err := r.OrderItems().UpdateQuantity(ctx, existing.ID, existing.Quantity+in.Quantity); err != nil {
				return internalError(err)
			}
		} else {
			//値引きは単価に反映して保存
			if err := r.OrderItems().Create(ctx, model.OrderItem{
				ID:             u.idGen.NewID(),
				OrderID:        order.ID,
				LineNo:         order.NextLineNo(),
				ProductID:      p.ID,
				Quantity:       in.Quantity,
				UnitPrice:      p.Price.Sub(discount),
				DiscountAmount: decimal.Zero,
				CreatedAt:      u.clock.Now().UTC(),
			}); err != nil {
				return internalError(err)
			}
		}

		saved, err := r.Orders().FindByID(ctx, order.ID)
		if err != nil {
			return internalError(err)
		}
		out = toOrderOutput(saved)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("item added to order", zap.Int64("product_id", in.ProductID), zap.String("order_id", orderID))
	u.publish(ctx, EventOrderItemAdded, out)
	return out, nil
}

// 明細数量の変更：差分だけ在庫を動かす（単価は変えない）
func (u *OrderUsecase) UpdateItem(ctx context.Context, orderID string, itemID string, quantity int64) (out OrderOutput, err error) {
	ctx, span := u.tracer.Start(ctx, "order.update_item")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order_item.id", itemID),
		attribute.Int64("item.quantity", quantity),
	)

	if quantity <= 0 {
		return OrderOutput{}, validationField("quantity", "Quantity must be greater than zero.")
	}

	u.log.Info("updating order item", zap.String("order_item_id", itemID), zap.String("order_id", orderID))

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := u.lockOrder(ctx, r, orderID)
		if err != nil {
			return err
		}

		item, ok := order.FindItem(itemID)
		if !ok {
			u.log.Warn("order item not found", zap.String("order_item_id", itemID), zap.String("order_id", orderID))
			return notFound(CodeOrderItemNotFound, "Order item not found.")
		}
		if item.Product == nil {
			return businessRule(CodeMissingProductInfo, "Product information for this item is missing.")
		}

		delta := quantity - item.Quantity
		switch {
		case delta > 0:
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, item.ProductID, delta)
			if err != nil {
				return internalError(err)
			}
			if !ok {
				return businessRule(CodeInsufficientStock,
					"Not enough stock for Product ID %d. Available: %d, Additional Requested: %d.",
					item.ProductID, item.Product.StockQuantity, delta)
			}
		case delta < 0:
			if err := r.Inventory().IncreaseStock(ctx, item.ProductID, -delta); err != nil {
				return internalError(err)
			}
		}

		if delta != 0 {
			if err := r.OrderItems().UpdateQuantity(ctx, item.ID, quantity); err != nil {
				return internalError(err)
			}
		}

		saved, err := r.Orders().FindByID(ctx, order.ID)
		if err != nil {
			return internalError(err)
		}
		//数量を減らして値引きが金額を超えたら戻す
		if err := checkDiscounts(saved); err != nil {
			return err
		}
		out = toOrderOutput(saved)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order item updated", zap.String("order_item_id", itemID), zap.String("order_id", orderID))
	u.publish(ctx, EventOrderItemUpdated, out)
	return out, nil
}

// 明細削除：数量分を在庫に戻す
func (u *OrderUsecase) RemoveItem(ctx context.Context, orderID string, itemID string) (err error) {
	ctx, span := u.tracer.Start(ctx, "order.remove_item")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order_item.id", itemID))

	u.log.Info("removing order item", zap.String("order_item_id", itemID), zap.String("order_id", orderID))

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := u.lockOrder(ctx, r, orderID)
		if err != nil {
			return err
		}

		item, ok := order.FindItem(itemID)
		if !ok {
			u.log.Warn("order item not found", zap.String("order_item_id", itemID), zap.String("order_id", orderID))
			return notFound(CodeOrderItemNotFound, "Order item not found.")
		}

		if err := restock(ctx, r, *item); err != nil {
			return err
		}
		if err := r.OrderItems().Delete(ctx, item.ID); err != nil {
			return internalError(err)
		}

		saved, err := r.Orders().FindByID(ctx, order.ID)
		if err != nil {
			return internalError(err)
		}
		if err := checkDiscounts(saved); err != nil {
			return err
		}
		out = toOrderOutput(saved)
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("order item removed", zap.String("order_item_id", itemID), zap.String("order_id", orderID))
	u.publish(ctx, EventOrderItemRemoved, out)
	return nil
}

// 注文削除：全明細を在庫に戻してから明細ごと消す
func (u *OrderUsecase) DeleteOrder(ctx context.Context, orderID string) (err error) {
	ctx, span := u.tracer.Start(ctx, "order.delete")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID))

	u.log.Info("deleting order", zap.String("order_id", orderID))

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := u.lockOrder(ctx, r, orderID)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := restock(ctx, r, item); err != nil {
				return err
			}
		}

		if err := r.Orders().Delete(ctx, order.ID); err != nil {
			return internalError(err)
		}
		out = toOrderOutput(order)
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("order deleted", zap.String("order_id", orderID))
	u.publish(ctx, EventOrderDeleted, out)
	return nil
}

// ステータス変更（遷移の制約はかけない）
func (u *OrderUsecase) UpdateStatus(ctx context.Context, orderID string, status string) (err error) {
	ctx, span := u.tracer.Start(ctx, "order.update_status")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.status", status))

	st, ok := model.ParseOrderStatus(status)
	if !ok {
		return validationField("status", "Status must be one of "+statusList()+".")
	}

	u.log.Info("updating order status", zap.String("order_id", orderID), zap.String("status", string(st)))

	var out OrderOutput
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		order, err := u.lockOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if err := r.Orders().UpdateStatus(ctx, order.ID, st); err != nil {
			return internalError(err)
		}
		order.Status = st
		out = toOrderOutput(order)
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("order status updated", zap.String("order_id", orderID), zap.String("status", string(st)))
	u.publish(ctx, EventOrderStatusChanged, out)
	return nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID string) (OrderOutput, error) {
	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound(CodeOrderNotFound, "Order with ID %s not found.", orderID)
		}
		if err != nil {
			return internalError(err)
		}
		out = toOrderOutput(o)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListOrders(ctx context.Context, in ListOrdersInput) (OrderListOutput, error) {
	if in.Page < 1 {
		return OrderListOutput{}, validationField("page", "Page must be 1 or greater.")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return OrderListOutput{}, validationField("limit", "Limit must be between 1 and 100.")
	}
	status := ""
	if strings.TrimSpace(in.Status) != "" {
		st, ok := model.ParseOrderStatus(in.Status)
		if !ok {
			return OrderListOutput{}, validationField("status", "Status must be one of "+statusList()+".")
		}
		status = string(st)
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, repo.OrderListFilter{
			Page:       in.Page,
			Limit:      in.Limit,
			Status:     status,
			CustomerID: strings.TrimSpace(in.CustomerID),
		})
		if err != nil {
			return internalError(err)
		}
		out = OrderListOutput{Items: toOrderOutputs(orders), Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// 同じ名前の顧客が複数いてもまとめて返す
func (u *OrderUsecase) ListOrdersByCustomerName(ctx context.Context, name string) ([]OrderOutput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationField("name", "Customer name is required.")
	}

	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListByCustomerName(ctx, name)
		if err != nil {
			return internalError(err)
		}
		outs = toOrderOutputs(orders)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

func (u *OrderUsecase) lockOrder(ctx context.Context, r repo.TxRepos, orderID string) (model.Order, error) {
	o, err := r.Orders().LockByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		u.log.Warn("order not found", zap.String("order_id", orderID))
		return model.Order{}, notFound(CodeOrderNotFound, "Order not found.")
	}
	if err != nil {
		return model.Order{}, internalError(err)
	}
	return o, nil
}

// 商品を確認して在庫を確保する
func (u *OrderUsecase) reserve(ctx context.Context, r repo.TxRepos, productID int64, qty int64) (model.Product, error) {
	p, err := r.Products().FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound(CodeProductNotFound, "Product with ID %d not found.", productID)
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}

	ok, err := r.Inventory().DecreaseStockIfEnough(ctx, productID, qty)
	if err != nil {
		return model.Product{}, internalError(err)
	}
	if !ok {
		return model.Product{}, insufficientStock(productID, p.StockQuantity, qty)
	}
	return p, nil
}

// 商品が消えている明細は戻さない
func restock(ctx context.Context, r repo.TxRepos, item model.OrderItem) error {
	err := r.Inventory().IncreaseStock(ctx, item.ProductID, item.Quantity)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return internalError(err)
	}
	return nil
}

func (u *OrderUsecase) publish(ctx context.Context, typ string, out OrderOutput) {
	ev := OrderEvent{
		Type:       typ,
		OrderID:    out.ID,
		CustomerID: out.CustomerID,
		Status:     out.Status,
		Total:      out.Total,
		OccurredAt: u.clock.Now().UTC(),
	}
	// リクエストのキャンセルは引き継がず、ブローカー停止時も待ちすぎない
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := u.events.Publish(pctx, ev); err != nil {
		u.log.Error("failed to publish order event",
			zap.String("event", typ),
			zap.String("order_id", out.ID),
			zap.Error(err),
		)
	}
}

// 明細合計・注文合計がマイナスになる値引きは不可
func checkDiscounts(o model.Order) error {
	for i, it := range o.Items {
		if it.LineTotal().IsNegative() {
			return businessRule(CodeInvalidDiscount, "Discount for item %d cannot exceed its line amount.", i)
		}
	}
	if o.Total().IsNegative() {
		return businessRule(CodeInvalidDiscount, "Order discount cannot exceed the order total.")
	}
	return nil
}

func insufficientStock(productID int64, available int64, requested int64) error {
	return businessRule(CodeInsufficientStock,
		"Not enough stock for Product ID %d. Available: %d, Requested: %d.",
		productID, available, requested)
}

func checkItemInput(prefix string, in OrderItemInput) error {
	if in.ProductID <= 0 {
		return validationField(prefix+"product_id", "Product ID must be greater than zero.")
	}
	if in.Quantity <= 0 {
		return validationField(prefix+"quantity", "Quantity must be greater than zero.")
	}
	_, err := discountOrZero(prefix+"discount_amount", in.DiscountAmount)
	return err
}

func discountOrZero(field string, d *decimal.Decimal) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, nil
	}
	if d.IsNegative() {
		return decimal.Zero, validationField(field, "Discount amount cannot be negative.")
	}
	return *d, nil
}

func statusList() string {
	sts := model.OrderStatuses()
	names := make([]string, 0, len(sts))
	for _, s := range sts {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

func toOrderOutputs(orders []model.Order) []OrderOutput {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o))
	}
	return outs
}

func toOrderOutput(o model.Order) OrderOutput {
	items := make([]OrderItemOutput, 0, len(o.Items))
	for _, it := range o.Items {
		name := ""
		if it.Product != nil {
			name = it.Product.Name
		}
		items = append(items, OrderItemOutput{
			ID:             it.ID,
			ProductID:      it.ProductID,
			ProductName:    name,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			DiscountAmount: it.DiscountAmount,
			LineTotal:      it.LineTotal(),
		})
	}

	out := OrderOutput{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		OrderDate:      o.OrderDate,
		Status:         string(o.Status),
		Items:          items,
		Subtotal:       o.Subtotal(),
		DiscountAmount: o.DiscountAmount,
		Total:          o.Total(),
	}
	if o.Customer != nil {
		out.CustomerName = o.Customer.Name
	}
	return out
}
