// Package memory keeps every table in process memory. It backs DB_DRIVER=memory
// and the workflow tests. A transaction holds the store lock for its whole
// duration and restores a snapshot when the callback fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"orderapp/internal/domain/model"
	repo "orderapp/internal/repository"
)

type state struct {
	products      map[int64]model.Product
	nextProductID int64
	customers     map[string]model.Customer
	orders        map[string]model.Order
	items         map[string]model.OrderItem
	users         map[string]model.User
}

func newState() *state {
	return &state{
		products:  map[int64]model.Product{},
		customers: map[string]model.Customer{},
		orders:    map[string]model.Order{},
		items:     map[string]model.OrderItem{},
		users:     map[string]model.User{},
	}
}

func (s *state) clone() *state {
	c := &state{
		products:      make(map[int64]model.Product, len(s.products)),
		nextProductID: s.nextProductID,
		customers:     make(map[string]model.Customer, len(s.customers)),
		orders:        make(map[string]model.Order, len(s.orders)),
		items:         make(map[string]model.OrderItem, len(s.items)),
		users:         make(map[string]model.User, len(s.users)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

type txRepos struct {
	st *state
}

func (r *txRepos) Orders() repo.OrderRepository         { return &orderRepo{st: r.st} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return &orderItemRepo{st: r.st} }
func (r *txRepos) Inventory() repo.InventoryRepository  { return &inventoryRepo{st: r.st} }
func (r *txRepos) Products() repo.ProductRepository     { return &productRepo{st: r.st} }
func (r *txRepos) Customers() repo.CustomerRepository   { return &customerRepo{st: r.st} }

// 失敗したらスナップショットに戻す
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(&txRepos{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Users() repo.UserRepository {
	return &userRepo{store: s}
}

// テスト・確認用：在庫の現在値
func (s *Store) Stock(productID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[productID]
	return p.StockQuantity, ok
}

// 明細・商品・顧客をつけて組み立てる
func (st *state) assemble(o model.Order) model.Order {
	if c, ok := st.customers[o.CustomerID]; ok {
		cc := c
		o.Customer = &cc
	}

	items := make([]model.OrderItem, 0)
	for _, it := range st.items {
		if it.OrderID != o.ID {
			continue
		}
		if p, ok := st.products[it.ProductID]; ok {
			pp := p
			it.Product = &pp
		} else {
			it.Product = nil
		}
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LineNo != items[j].LineNo {
			return items[i].LineNo < items[j].LineNo
		}
		return items[i].ID < items[j].ID
	})
	o.Items = items
	return o
}

func paginate[T any](all []T, page int, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return all
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []T{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// ---- products ----

type productRepo struct{ st *state }

func (r *productRepo) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	all := make([]model.Product, 0, len(r.st.products))
	for _, p := range r.st.products {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch q.Sort {
		case "new":
			return a.ID > b.ID
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "price_asc":
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case "price_desc":
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		}
		return a.ID < b.ID
	})

	return paginate(all, q.Page, q.Limit), int64(len(all)), nil
}

func (r *productRepo) ListByName(ctx context.Context, name string) ([]model.Product, error) {
	out := make([]model.Product, 0)
	for _, p := range r.st.products {
		if strings.EqualFold(p.Name, name) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.st.nextProductID++
	p.ID = r.st.nextProductID
	r.st.products[p.ID] = p
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	cur, ok := r.st.products[p.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = p.Name
	cur.Price = p.Price
	r.st.products[p.ID] = cur
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.st.products[id]; !ok {
		return repo.ErrNotFound
	}
	if used, _ := r.IsReferenced(ctx, id); used {
		return repo.ErrReferenced
	}
	delete(r.st.products, id)
	return nil
}

func (r *productRepo) IsReferenced(ctx context.Context, id int64) (bool, error) {
	for _, it := range r.st.items {
		if it.ProductID == id {
			return true, nil
		}
	}
	return false, nil
}

// ---- inventory ----

type inventoryRepo struct{ st *state }

// 在庫が足りるときだけ減らす
func (r *inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.st.products[productID]
	if !ok || p.StockQuantity < qty {
		return false, nil
	}
	p.StockQuantity -= qty
	r.st.products[productID] = p
	return true, nil
}

func (r *inventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.st.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.StockQuantity += qty
	r.st.products[productID] = p
	return nil
}

// ---- customers ----

type customerRepo struct{ st *state }

func (r *customerRepo) List(ctx context.Context) ([]model.Customer, error) {
	out := make([]model.Customer, 0, len(r.st.customers))
	for _, c := range r.st.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *customerRepo) ListByName(ctx context.Context, name string) ([]model.Customer, error) {
	out := make([]model.Customer, 0)
	for _, c := range r.st.customers {
		if strings.EqualFold(c.Name, name) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *customerRepo) FindByID(ctx context.Context, id string) (model.Customer, error) {
	c, ok := r.st.customers[id]
	if !ok {
		return model.Customer{}, repo.ErrNotFound
	}
	return c, nil
}

func (r *customerRepo) Create(ctx context.Context, c model.Customer) error {
	if _, ok := r.st.customers[c.ID]; ok {
		return repo.ErrConflict
	}
	r.st.customers[c.ID] = c
	return nil
}

func (r *customerRepo) Update(ctx context.Context, c model.Customer) error {
	cur, ok := r.st.customers[c.ID]
	if !ok {
		return repo.ErrNotFound
	}
	cur.Name = c.Name
	cur.Address = c.Address
	cur.PhoneNumber = c.PhoneNumber
	r.st.customers[c.ID] = cur
	return nil
}

func (r *customerRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.st.customers[id]; !ok {
		return repo.ErrNotFound
	}
	if has, _ := r.HasOrders(ctx, id); has {
		return repo.ErrReferenced
	}
	delete(r.st.customers, id)
	return nil
}

func (r *customerRepo) HasOrders(ctx context.Context, id string) (bool, error) {
	for _, o := range r.st.orders {
		if o.CustomerID == id {
			return true, nil
		}
	}
	return false, nil
}

// ---- orders ----

type orderRepo struct{ st *state }

func (r *orderRepo) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return r.st.assemble(o), nil
}

// ストア全体がロック済みなので FindByID と同じ
func (r *orderRepo) LockByID(ctx context.Context, orderID string) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *orderRepo) sorted(match func(model.Order) bool) []model.Order {
	out := make([]model.Order, 0)
	for _, o := range r.st.orders {
		if match(o) {
			out = append(out, r.st.assemble(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.After(out[j].OrderDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *orderRepo) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	all := r.sorted(func(o model.Order) bool {
		if f.Status != "" && string(o.Status) != f.Status {
			return false
		}
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			return false
		}
		return true
	})
	return paginate(all, f.Page, f.Limit), int64(len(all)), nil
}

func (r *orderRepo) ListByCustomerName(ctx context.Context, name string) ([]model.Order, error) {
	return r.sorted(func(o model.Order) bool {
		c, ok := r.st.customers[o.CustomerID]
		return ok && strings.EqualFold(c.Name, name)
	}), nil
}

func (r *orderRepo) Create(ctx context.Context, o model.Order) error {
	if _, ok := r.st.customers[o.CustomerID]; !ok {
		return fmt.Errorf("customer %s: %w", o.CustomerID, repo.ErrReferenced)
	}
	if _, ok := r.st.orders[o.ID]; ok {
		return repo.ErrConflict
	}
	o.Items = nil
	o.Customer = nil
	r.st.orders[o.ID] = o
	return nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	o, ok := r.st.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	r.st.orders[orderID] = o
	return nil
}

// 明細もまとめて消す
func (r *orderRepo) Delete(ctx context.Context, orderID string) error {
	if _, ok := r.st.orders[orderID]; !ok {
		return repo.ErrNotFound
	}
	for id, it := range r.st.items {
		if it.OrderID == orderID {
			delete(r.st.items, id)
		}
	}
	delete(r.st.orders, orderID)
	return nil
}

// ---- order items ----

type orderItemRepo struct{ st *state }

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID string, items []model.OrderItem) error {
	for _, it := range items {
		it.OrderID = orderID
		if err := r.Create(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

func (r *orderItemRepo) Create(ctx context.Context, it model.OrderItem) error {
	if _, ok := r.st.orders[it.OrderID]; !ok {
		return fmt.Errorf("order %s: %w", it.OrderID, repo.ErrReferenced)
	}
	if _, ok := r.st.products[it.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", it.ProductID, repo.ErrReferenced)
	}
	if _, ok := r.st.items[it.ID]; ok {
		return repo.ErrConflict
	}
	it.Product = nil
	r.st.items[it.ID] = it
	return nil
}

func (r *orderItemRepo) UpdateQuantity(ctx context.Context, itemID string, qty int64) error {
	it, ok := r.st.items[itemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	r.st.items[itemID] = it
	return nil
}

func (r *orderItemRepo) Delete(ctx context.Context, itemID string) error {
	if _, ok := r.st.items[itemID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.st.items, itemID)
	return nil
}

// ---- users ----

type userRepo struct{ store *Store }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.st.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repo.ErrConflict
		}
	}
	r.store.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.st.users[userID]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, u := range r.store.st.users {
		if strings.EqualFold(u.Email, email) {
			found := u
			return &found, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

func (r *userRepo) List(ctx context.Context) ([]model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	out := make([]model.User, 0, len(r.store.st.users))
	for _, u := range r.store.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.users[u.ID]; !ok {
		return repo.ErrUserNotFound
	}
	r.store.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) IncrementTokenVersion(ctx context.Context, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.st.users[userID]
	if !ok {
		return repo.ErrUserNotFound
	}
	u.TokenVersion++
	r.store.st.users[userID] = u
	return nil
}
