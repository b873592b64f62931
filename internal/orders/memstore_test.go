package orders

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is the in-memory Store/Catalog/Settler used by service and
// reconciler tests. failCreate injects a mid-transaction failure: when set,
// CreateOrderTx returns it without touching any state, mirroring a rolled
// back transaction.
type memStore struct {
	mu       sync.Mutex
	products map[string]Product
	attrs    map[string]ProductAttribute
	orders   map[string]*Order // by code
	carts    map[string][]CartItem

	failCreate   error
	conflictLeft int // next N creates fail with ErrConflict
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]Product{},
		attrs:    map[string]ProductAttribute{},
		orders:   map[string]*Order{},
		carts:    map[string][]CartItem{},
	}
}

func (m *memStore) addProduct(p Product) { m.products[p.ID] = p }

func (m *memStore) CreateOrderTx(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failCreate != nil {
		return fmt.Errorf("%w: %s", ErrPersistence, m.failCreate)
	}
	if m.conflictLeft > 0 {
		m.conflictLeft--
		return fmt.Errorf("%w: code=%s", ErrConflict, o.Code)
	}
	if _, dup := m.orders[o.Code]; dup {
		return fmt.Errorf("%w: code=%s", ErrConflict, o.Code)
	}

	o.ID = fmt.Sprintf("id-%s", o.Code)
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	m.orders[o.Code] = &cp
	delete(m.carts, o.UserID)
	return nil
}

func (m *memStore) GetByCode(_ context.Context, code string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[code]
	if !ok {
		return nil, fmt.Errorf("%w: code=%s", ErrNotFound, code)
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) List(_ context.Context, userID string, status Status) ([]Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		if status != "" && o.OrderStatus != status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) ApplySettlement(_ context.Context, code string, success bool) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[code]
	if !ok {
		return nil, fmt.Errorf("%w: code=%s", ErrNotFound, code)
	}
	next, nextPay, err := SettleTarget(o.OrderStatus, o.PaymentStatus, success)
	if err != nil {
		return nil, err
	}
	o.OrderStatus, o.PaymentStatus = next, nextPay
	cp := *o
	return &cp, nil
}

func (m *memStore) Cancel(_ context.Context, code, userID string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[code]
	if !ok {
		return nil, fmt.Errorf("%w: code=%s", ErrNotFound, code)
	}
	if userID != "" && o.UserID != userID {
		return nil, fmt.Errorf("%w: code=%s", ErrNotFound, code)
	}
	if !CanTransition(o.OrderStatus, StatusCancelled) {
		return nil, fmt.Errorf("%w: cancel %s order", ErrInvalidTransition, o.OrderStatus)
	}
	o.OrderStatus = StatusCancelled
	cp := *o
	return &cp, nil
}

// Catalog

func (m *memStore) Product(_ context.Context, productID string) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %s not found", ErrValidation, productID)
	}
	return p, nil
}

func (m *memStore) UnitPrice(_ context.Context, productID string, attributeID *string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return 0, fmt.Errorf("%w: product %s not found", ErrValidation, productID)
	}
	if attributeID != nil {
		a, ok := m.attrs[*attributeID]
		if !ok || a.ProductID != productID {
			return 0, fmt.Errorf("%w: attribute %s not found", ErrValidation, *attributeID)
		}
	}
	if p.SalePrice != nil {
		return *p.SalePrice, nil
	}
	return p.Price, nil
}
