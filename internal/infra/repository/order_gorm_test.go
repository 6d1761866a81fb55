package repository

import (
	"context"
	"testing"

	repo "orderapp/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockOrderSQL = `SELECT "id" FROM "orders" WHERE id = \$1 .*FOR UPDATE`

func TestLockByID_LocksRowThenLoadsDetails(t *testing.T) {
	db, mock := newMockDB(t)
	mock.MatchExpectationsInOrder(false)
	r := NewOrderGormRepository(db)

	const orderID = "11111111-1111-1111-1111-111111111111"
	const customerID = "22222222-2222-2222-2222-222222222222"

	mock.ExpectQuery(lockOrderSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(orderID))
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "status", "discount_amount"}).
			AddRow(orderID, customerID, "PENDING", "0.00"))
	mock.ExpectQuery(`SELECT \* FROM "customers" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(customerID, "Alice"))
	mock.ExpectQuery(`SELECT \* FROM "order_items" WHERE .*ORDER BY line_no asc`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "line_no", "product_id", "quantity", "unit_price", "discount_amount"}).
			AddRow("item-1", orderID, 1, int64(7), int64(2), "10.00", "0.00"))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "stock_quantity"}).
			AddRow(int64(7), "Pen", "12.00", int64(4)))

	o, err := r.LockByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, orderID, o.ID)
	require.NotNil(t, o.Customer)
	assert.Equal(t, "Alice", o.Customer.Name)
	require.Len(t, o.Items, 1)
	require.NotNil(t, o.Items[0].Product)
	assert.Equal(t, "Pen", o.Items[0].Product.Name)
	assert.True(t, o.Subtotal().Equal(decimal.NewFromInt(20)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockByID_MissingOrderIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	r := NewOrderGormRepository(db)

	mock.ExpectQuery(lockOrderSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.LockByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
