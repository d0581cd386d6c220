package orders

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-mall-checkout.git/internal/address"
	"github.com/ariefcatur/go-mall-checkout.git/internal/inventory"
)

// memState is the storage the fake DB and its transactions operate on.
// BeginTx clones it; Commit swaps the clone in; Rollback discards it, so
// atomicity is observable from the outside.
type memState struct {
	addresses map[int64]int64 // address id -> owning user
	skus      map[int64]*memSKURow
	products  map[int64]int

	orders     map[string]*memOrderRow
	lines      map[int64]*memLineRow
	nextLineID int64
}

type memSKURow struct {
	productID int64
	price     decimal.Decimal
	stock     int
	sales     int
	comments  int
}

type memOrderRow struct {
	userID      int64
	addressID   int64
	totalCount  int
	totalAmount decimal.Decimal
	freight     decimal.Decimal
	payMethod   PayMethod
	status      Status
	createdAt   time.Time
}

type memLineRow struct {
	orderID     string
	skuID       int64
	qty         int
	unitPrice   decimal.Decimal
	comment     string
	score       int
	isAnonymous bool
	isCommented bool
}

func newMemState() *memState {
	return &memState{
		addresses: map[int64]int64{},
		skus:      map[int64]*memSKURow{},
		products:  map[int64]int{},
		orders:    map[string]*memOrderRow{},
		lines:     map[int64]*memLineRow{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.skus {
		cp := *v
		c.skus[k] = &cp
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		cp := *v
		c.orders[k] = &cp
	}
	for k, v := range s.lines {
		cp := *v
		c.lines[k] = &cp
	}
	c.nextLineID = s.nextLineID
	return c
}

// memQuerier dispatches the ledger's SQL against a memState.
type memQuerier struct{ st *memState }

func tag(verb string, n int) pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("%s %d", verb, n))
}

func (m memQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "UPDATE skus SET stock"):
		skuID, expected := args[0].(int64), args[1].(int)
		s, ok := m.st.skus[skuID]
		if !ok || s.stock != expected {
			return tag("UPDATE", 0), nil
		}
		s.stock = args[2].(int)
		s.sales = args[3].(int)
		return tag("UPDATE", 1), nil

	case strings.Contains(sql, "UPDATE skus SET comments"):
		if s, ok := m.st.skus[args[0].(int64)]; ok {
			s.comments++
		}
		return tag("UPDATE", 1), nil

	case strings.Contains(sql, "UPDATE products"):
		m.st.products[args[0].(int64)] += args[1].(int)
		return tag("UPDATE", 1), nil

	case strings.Contains(sql, "INSERT INTO orders"):
		m.st.orders[args[0].(string)] = &memOrderRow{
			userID:    args[1].(int64),
			addressID: args[2].(int64),
			freight:   args[3].(decimal.Decimal),
			payMethod: args[4].(PayMethod),
			status:    args[5].(Status),
			createdAt: time.Now(),
		}
		return tag("INSERT", 1), nil

	case strings.Contains(sql, "INSERT INTO order_lines"):
		m.st.nextLineID++
		m.st.lines[m.st.nextLineID] = &memLineRow{
			orderID:   args[0].(string),
			skuID:     args[1].(int64),
			qty:       args[2].(int),
			unitPrice: args[3].(decimal.Decimal),
		}
		return tag("INSERT", 1), nil

	case strings.Contains(sql, "UPDATE orders SET total_count"):
		o := m.st.orders[args[0].(string)]
		o.totalCount = args[1].(int)
		o.totalAmount = args[2].(decimal.Decimal)
		return tag("UPDATE", 1), nil

	case strings.Contains(sql, "UPDATE order_lines SET comment"):
		l := m.st.lines[args[0].(int64)]
		l.comment = args[2].(string)
		l.score = args[3].(int)
		l.isAnonymous = args[4].(bool)
		l.isCommented = true
		return tag("UPDATE", 1), nil

	case strings.Contains(sql, "UPDATE orders SET status"):
		m.st.orders[args[0].(string)].status = args[1].(Status)
		return tag("UPDATE", 1), nil
	}
	return tag("", 0), nil
}

func (m memQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "FROM addresses"):
		id, uid := args[0].(int64), args[1].(int64)
		if owner, ok := m.st.addresses[id]; ok && owner == uid {
			return memRow{vals: []any{id, uid, "r", "d", "m"}}
		}
		return memRow{err: pgx.ErrNoRows}

	case strings.Contains(sql, "SELECT product_id, price, stock, sales FROM skus"):
		s, ok := m.st.skus[args[0].(int64)]
		if !ok {
			return memRow{err: pgx.ErrNoRows}
		}
		return memRow{vals: []any{s.productID, s.price, s.stock, s.sales}}

	case strings.Contains(sql, "SELECT status FROM orders"):
		o, ok := m.st.orders[args[0].(string)]
		if !ok || o.userID != args[1].(int64) {
			return memRow{err: pgx.ErrNoRows}
		}
		return memRow{vals: []any{o.status}}

	case strings.Contains(sql, "SELECT sku_id, is_commented FROM order_lines"):
		l, ok := m.st.lines[args[0].(int64)]
		if !ok || l.orderID != args[1].(string) {
			return memRow{err: pgx.ErrNoRows}
		}
		return memRow{vals: []any{l.skuID, l.isCommented}}
	}
	return memRow{err: pgx.ErrNoRows}
}

func (m memQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if strings.Contains(sql, "FROM order_lines WHERE order_id") {
		orderID := args[0].(string)
		var data [][]any
		for id := int64(1); id <= m.st.nextLineID; id++ {
			l, ok := m.st.lines[id]
			if !ok || l.orderID != orderID {
				continue
			}
			data = append(data, []any{
				id, l.orderID, l.skuID, l.qty, l.unitPrice,
				l.comment, l.score, l.isAnonymous, l.isCommented,
			})
		}
		return &memRows{data: data}, nil
	}
	return &memRows{}, nil
}

type memRow struct {
	vals []any
	err  error
}

func (r memRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

type memRows struct {
	data [][]any
	i    int
}

func (r *memRows) Close()                                       {}
func (r *memRows) Err() error                                   { return nil }
func (r *memRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *memRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *memRows) Next() bool                                   { r.i++; return r.i <= len(r.data) }
func (r *memRows) Scan(dest ...any) error                       { return scanInto(r.data[r.i-1], dest) }
func (r *memRows) Values() ([]any, error)                       { return nil, nil }
func (r *memRows) RawValues() [][]byte                          { return nil }
func (r *memRows) Conn() *pgx.Conn                              { return nil }

func scanInto(vals []any, dest []any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = vals[i].(int64)
		case *int:
			*p = vals[i].(int)
		case *string:
			*p = vals[i].(string)
		case *bool:
			*p = vals[i].(bool)
		case *decimal.Decimal:
			*p = vals[i].(decimal.Decimal)
		case *Status:
			*p = vals[i].(Status)
		}
	}
	return nil
}

type memDB struct{ st *memState }

func (f *memDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return memQuerier{st: f.st}.Exec(ctx, sql, args...)
}

func (f *memDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return memQuerier{st: f.st}.Query(ctx, sql, args...)
}

func (f *memDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return memQuerier{st: f.st}.QueryRow(ctx, sql, args...)
}

func (f *memDB) BeginTx(_ context.Context, _ pgx.TxOptions) (Tx, error) {
	return &memTx{parent: f, st: f.st.clone()}, nil
}

type memTx struct {
	parent *memDB
	st     *memState
}

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return memQuerier{st: t.st}.Exec(ctx, sql, args...)
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return memQuerier{st: t.st}.Query(ctx, sql, args...)
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return memQuerier{st: t.st}.QueryRow(ctx, sql, args...)
}

func (t *memTx) Commit(context.Context) error {
	t.parent.st = t.st
	return nil
}

func (t *memTx) Rollback(context.Context) error { return nil }

func newTestLedger(db *memDB) *Ledger {
	return &Ledger{
		DB:        db,
		Addresses: &address.Repo{DB: db},
		IDs:       NewIDGenerator(),
		Freight:   decimal.RequireFromString("10.00"),
		Retry:     inventory.DefaultPolicy,
	}
}

func TestCommitSuccessTotals(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("19.90"), stock: 5}
	db.st.skus[2] = &memSKURow{productID: 11, price: d("45.00"), stock: 2}

	l := newTestLedger(db)
	receipt, err := l.Commit(context.Background(), 42, map[int64]int{1: 2, 2: 1}, 3, PayOnline)
	require.NoError(t, err)

	assert.Equal(t, 3, receipt.ItemCount)
	// 2*19.90 + 1*45.00 + 10.00 freight
	assert.True(t, receipt.PayAmount.Equal(d("94.80")), "got %s", receipt.PayAmount)
	assert.ElementsMatch(t, []int64{1, 2}, receipt.SKUIDs)

	o := db.st.orders[receipt.OrderID]
	require.NotNil(t, o)
	assert.Equal(t, StatusPendingPayment, o.status)
	assert.Equal(t, 3, o.totalCount)
	assert.True(t, o.totalAmount.Equal(d("94.80")))

	assert.Len(t, db.st.lines, 2)
	sum := 0
	for _, line := range db.st.lines {
		sum += line.qty
	}
	assert.Equal(t, o.totalCount, sum, "line quantities add up to the order total")

	assert.Equal(t, 3, db.st.skus[1].stock)
	assert.Equal(t, 1, db.st.skus[2].stock)
	assert.Equal(t, 2, db.st.products[10])
	assert.Equal(t, 1, db.st.products[11])
}

func TestCommitRollsBackOnInsufficientStock(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("19.90"), stock: 5}
	db.st.skus[2] = &memSKURow{productID: 11, price: d("45.00"), stock: 0}

	l := newTestLedger(db)
	_, err := l.Commit(context.Background(), 42, map[int64]int{1: 2, 2: 1}, 3, PayOnline)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	// no partial order, no partial stock mutation, regardless of which line
	// was attempted first
	assert.Empty(t, db.st.orders)
	assert.Empty(t, db.st.lines)
	assert.Equal(t, 5, db.st.skus[1].stock)
	assert.Equal(t, 0, db.st.skus[2].stock)
	assert.Empty(t, db.st.products)
}

func TestCommitUnitPriceSnapshot(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("19.90"), stock: 5}

	l := newTestLedger(db)
	receipt, err := l.Commit(context.Background(), 42, map[int64]int{1: 1}, 3, PayOnDelivery)
	require.NoError(t, err)

	assert.Equal(t, StatusAwaitingShipment, db.st.orders[receipt.OrderID].status)
	for _, line := range db.st.lines {
		assert.True(t, line.unitPrice.Equal(d("19.90")))
	}
}

func TestCommitValidatesInput(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("5.00"), stock: 5}
	l := newTestLedger(db)

	_, err := l.Commit(context.Background(), 42, map[int64]int{1: 1}, 3, PayMethod(9))
	assert.ErrorIs(t, err, ErrInvalidPayMethod)

	_, err = l.Commit(context.Background(), 42, nil, 3, PayOnline)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = l.Commit(context.Background(), 42, map[int64]int{1: 1}, 99, PayOnline)
	assert.ErrorIs(t, err, ErrAddressNotFound)

	// address belonging to another user is invisible
	_, err = l.Commit(context.Background(), 7, map[int64]int{1: 1}, 3, PayOnline)
	assert.ErrorIs(t, err, ErrAddressNotFound)

	assert.Empty(t, db.st.orders)
	assert.Equal(t, 5, db.st.skus[1].stock)
}

func commitOne(t *testing.T, db *memDB, userID int64, selected map[int64]int) string {
	t.Helper()
	l := newTestLedger(db)
	receipt, err := l.Commit(context.Background(), userID, selected, 3, PayOnDelivery)
	require.NoError(t, err)
	return receipt.OrderID
}

func TestSubmitCommentRequiresCompletedOrder(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("5.00"), stock: 5}

	orderID := commitOne(t, db, 42, map[int64]int{1: 1})
	require.Equal(t, StatusAwaitingShipment, db.st.orders[orderID].status)

	l := newTestLedger(db)
	err := l.SubmitComment(context.Background(), 42, orderID, 1, "great", 5, false)
	assert.ErrorIs(t, err, ErrNotReviewable)

	assert.False(t, db.st.lines[1].isCommented, "line untouched on rejected review")
	assert.Zero(t, db.st.skus[1].comments)
	assert.Equal(t, StatusAwaitingShipment, db.st.orders[orderID].status)
}

func TestSubmitCommentReviewProgression(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("5.00"), stock: 5}
	db.st.skus[2] = &memSKURow{productID: 11, price: d("7.00"), stock: 5}

	orderID := commitOne(t, db, 42, map[int64]int{1: 1, 2: 1})
	db.st.orders[orderID].status = StatusCompleted

	var first, second int64
	for id, line := range db.st.lines {
		if line.skuID == 1 {
			first = id
		} else {
			second = id
		}
	}

	l := newTestLedger(db)
	require.NoError(t, l.SubmitComment(context.Background(), 42, orderID, first, "good", 4, false))
	assert.Equal(t, StatusPartiallyReviewed, db.st.orders[orderID].status)
	assert.Equal(t, 1, db.st.skus[1].comments)

	require.NoError(t, l.SubmitComment(context.Background(), 42, orderID, second, "fine", 5, true))
	assert.Equal(t, StatusFullyReviewed, db.st.orders[orderID].status)

	// re-reviewing a line never bumps the counter twice
	require.NoError(t, l.SubmitComment(context.Background(), 42, orderID, first, "edited", 3, false))
	assert.Equal(t, 1, db.st.skus[1].comments)
	assert.Equal(t, StatusFullyReviewed, db.st.orders[orderID].status)
}

func TestSubmitCommentUnknownOrderAndLine(t *testing.T) {
	db := &memDB{st: newMemState()}
	db.st.addresses[3] = 42
	db.st.skus[1] = &memSKURow{productID: 10, price: d("5.00"), stock: 5}

	orderID := commitOne(t, db, 42, map[int64]int{1: 1})
	db.st.orders[orderID].status = StatusCompleted

	l := newTestLedger(db)
	err := l.SubmitComment(context.Background(), 42, "nope", 1, "x", 5, false)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// another user's order is invisible
	err = l.SubmitComment(context.Background(), 7, orderID, 1, "x", 5, false)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	err = l.SubmitComment(context.Background(), 42, orderID, 99, "x", 5, false)
	assert.ErrorIs(t, err, ErrLineNotFound)
}
