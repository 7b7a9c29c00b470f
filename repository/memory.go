package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/agrikart/api/models"
)

// MemoryStore is an in-memory implementation of every store interface,
// used by tests in place of Mongo. All methods return copies.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[primitive.ObjectID]models.Product
	orders    map[primitive.ObjectID]models.Order
	addresses map[primitive.ObjectID]models.Address
	users     map[primitive.ObjectID]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[primitive.ObjectID]models.Product),
		orders:    make(map[primitive.ObjectID]models.Order),
		addresses: make(map[primitive.ObjectID]models.Address),
		users:     make(map[primitive.ObjectID]models.User),
	}
}

var _ ProductStore = (*MemoryStore)(nil)

// ProductStore

func (m *MemoryStore) Create(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Active = false
	p.UpdatedAt = time.Now()
	m.products[id] = p
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]models.Product, 0)
	for _, p := range m.products {
		if !f.IncludeInactive && !p.Active {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Query != "" && !matchesQuery(p, f.Query) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page, limit := normalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start >= total {
		return []models.Product{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func matchesQuery(p models.Product, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(p.Name), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || !p.Active {
		return ErrNotFound
	}
	if p.Stock < qty {
		return ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	m.products[id] = p
	return nil
}

func (m *MemoryStore) Restock(ctx context.Context, id primitive.ObjectID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	m.products[id] = p
	return nil
}

// OrderStore

func (m *MemoryStore) CreateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	m.orders[o.ID] = *o
	return nil
}

func (m *MemoryStore) GetOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	o.UpdatedAt = time.Now()
	m.orders[o.ID] = *o
	return nil
}

func (m *MemoryStore) matchOrders(f OrderFilter) []models.Order {
	matched := make([]models.Order, 0)
	for _, o := range m.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

func (m *MemoryStore) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := m.matchOrders(f)
	total := int64(len(matched))
	page, limit := normalizePage(f.Page, f.Limit)
	start := (page - 1) * limit
	if start >= total {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MemoryStore) OrderStats(ctx context.Context, f OrderFilter) (*OrderStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &OrderStats{ByStatus: make(map[string]int64)}
	for _, o := range m.matchOrders(f) {
		stats.ByStatus[o.Status]++
		stats.TotalOrders++
		if o.Status != models.OrderCancelled {
			stats.TotalRevenue += o.TotalAmount
		}
	}
	return stats, nil
}

// AddressStore

func (m *MemoryStore) CreateAddress(ctx context.Context, a *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Id.IsZero() {
		a.Id = primitive.NewObjectID()
	}
	if a.IsDefault {
		m.unsetDefaults(a.UserId, a.Id)
	}
	m.addresses[a.Id] = *a
	return nil
}

func (m *MemoryStore) UpdateAddress(ctx context.Context, a *models.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.addresses[a.Id]
	if !ok || existing.UserId != a.UserId {
		return ErrNotFound
	}
	if a.IsDefault {
		m.unsetDefaults(a.UserId, a.Id)
	}
	m.addresses[a.Id] = *a
	return nil
}

func (m *MemoryStore) unsetDefaults(userID, except primitive.ObjectID) {
	for id, a := range m.addresses {
		if a.UserId == userID && id != except && a.IsDefault {
			a.IsDefault = false
			m.addresses[id] = a
		}
	}
}

func (m *MemoryStore) GetAddressByID(ctx context.Context, id, userID primitive.ObjectID) (*models.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.addresses[id]
	if !ok || a.UserId != userID {
		return nil, ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (m *MemoryStore) ListAddressesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Address, 0)
	for _, a := range m.addresses {
		if a.UserId == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteAddress(ctx context.Context, id, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.addresses[id]
	if !ok || a.UserId != userID {
		return ErrNotFound
	}
	delete(m.addresses, id)
	return nil
}

// UserStore

func (m *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.Id.IsZero() {
		u.Id = primitive.NewObjectID()
	}
	m.users[u.Id] = *u
	return nil
}

func (m *MemoryStore) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// Wrapper types expose the shared MemoryStore under each store interface,
// since the interface method names collide on a single receiver.

type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderStore = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *models.Order) error {
	return mo.store.CreateOrder(ctx, o)
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return mo.store.GetOrderByID(ctx, id)
}

func (mo *MemoryOrders) Update(ctx context.Context, o *models.Order) error {
	return mo.store.UpdateOrder(ctx, o)
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	return mo.store.ListOrders(ctx, f)
}

func (mo *MemoryOrders) Stats(ctx context.Context, f OrderFilter) (*OrderStats, error) {
	return mo.store.OrderStats(ctx, f)
}

type MemoryAddresses struct{ store *MemoryStore }

func NewMemoryAddresses(store *MemoryStore) *MemoryAddresses {
	return &MemoryAddresses{store: store}
}

var _ AddressStore = (*MemoryAddresses)(nil)

func (ma *MemoryAddresses) Create(ctx context.Context, a *models.Address) error {
	return ma.store.CreateAddress(ctx, a)
}

func (ma *MemoryAddresses) Update(ctx context.Context, a *models.Address) error {
	return ma.store.UpdateAddress(ctx, a)
}

func (ma *MemoryAddresses) GetByID(ctx context.Context, id, userID primitive.ObjectID) (*models.Address, error) {
	return ma.store.GetAddressByID(ctx, id, userID)
}

func (ma *MemoryAddresses) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Address, error) {
	return ma.store.ListAddressesByUser(ctx, userID)
}

func (ma *MemoryAddresses) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	return ma.store.DeleteAddress(ctx, id, userID)
}

type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserStore = (*MemoryUsers)(nil)

func (mu *MemoryUsers) Create(ctx context.Context, u *models.User) error {
	return mu.store.CreateUser(ctx, u)
}

func (mu *MemoryUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return mu.store.GetUserByID(ctx, id)
}

func (mu *MemoryUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return mu.store.GetUserByEmail(ctx, email)
}
