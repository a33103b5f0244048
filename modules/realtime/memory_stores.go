package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryOrderStore is an in-process OrderStore for tests and single-node
// development without MongoDB.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]Order)}
}

func (s *MemoryOrderStore) Create(ctx context.Context, order *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	s.orders[order.ID] = *order
	return nil
}

func (s *MemoryOrderStore) Get(ctx context.Context, orderID string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (s *MemoryOrderStore) UpdateStatus(ctx context.Context, orderID string, status OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now()
	s.orders[orderID] = order
	return nil
}

// MemoryProductStore is an in-process ProductStore.
type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[string]Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: make(map[string]Product)}
}

// Put seeds or replaces a product.
func (s *MemoryProductStore) Put(product Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = product
}

func (s *MemoryProductStore) Get(ctx context.Context, productID string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &product, nil
}

func (s *MemoryProductStore) DecrementStock(ctx context.Context, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if product.Stock < qty {
		return fmt.Errorf("%w: product %s", ErrInsufficientStock, productID)
	}
	product.Stock -= qty
	product.UpdatedAt = time.Now()
	s.products[productID] = product
	return nil
}

// MemoryUserStore is an in-process UserStore.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]User)}
}

// Put seeds or replaces a user.
func (s *MemoryUserStore) Put(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *MemoryUserStore) Get(ctx context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
