package memorystorage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Fuchsoria/couponslots/internal/storage"
	"github.com/google/uuid"
)

type table[T any] struct {
	order []string
	items map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{items: make(map[string]T)}
}

func (t *table[T]) put(id string, item T) {
	if _, ok := t.items[id]; !ok {
		t.order = append(t.order, id)
	}

	t.items[id] = item
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}

	return out
}

// Storage keeps records in process memory. Slot uniqueness is not enforced
// here; callers rely on the layout allocator alone.
type Storage struct {
	mu      sync.RWMutex
	banners table[storage.Banner]
	coupons table[storage.Coupon]
	stores  table[storage.Store]
	now     func() time.Time
}

func New() *Storage {
	return &Storage{
		banners: newTable[storage.Banner](),
		coupons: newTable[storage.Coupon](),
		stores:  newTable[storage.Store](),
		now:     time.Now,
	}
}

func (s *Storage) Connect(context.Context) error {
	return nil
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) CreateBanner(_ context.Context, banner storage.Banner) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	banner.ID = newID(banner.ID)
	banner.CreatedAt = s.now()
	s.banners.put(banner.ID, banner)

	return banner.ID, nil
}

func (s *Storage) GetBanner(_ context.Context, id string) (storage.Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banner, ok := s.banners.items[id]
	if !ok {
		return storage.Banner{}, storage.ErrNotFound
	}

	return banner, nil
}

func (s *Storage) ListBanners(context.Context) ([]storage.Banner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.banners.list(), nil
}

func (s *Storage) UpdateBanner(_ context.Context, banner storage.Banner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.banners.items[banner.ID]
	if !ok {
		return storage.ErrNotFound
	}

	banner.LayoutPosition, banner.IsActive, banner.CreatedAt = current.LayoutPosition, current.IsActive, current.CreatedAt
	s.banners.put(banner.ID, banner)

	return nil
}

func (s *Storage) UpdateBannerSlot(_ context.Context, id string, position *int, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	banner, ok := s.banners.items[id]
	if !ok {
		return storage.ErrNotFound
	}

	banner.LayoutPosition, banner.IsActive = copyInt(position), active
	s.banners.put(id, banner)

	return nil
}

func (s *Storage) CreateCoupon(_ context.Context, coupon storage.Coupon) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon.ID = newID(coupon.ID)
	coupon.CreatedAt = s.now()
	s.coupons.put(coupon.ID, coupon)

	return coupon.ID, nil
}

func (s *Storage) GetCoupon(_ context.Context, id string) (storage.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coupon, ok := s.coupons.items[id]
	if !ok {
		return storage.Coupon{}, storage.ErrNotFound
	}

	return coupon, nil
}

func (s *Storage) ListCoupons(context.Context) ([]storage.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.coupons.list(), nil
}

func (s *Storage) UpdateCoupon(_ context.Context, coupon storage.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.coupons.items[coupon.ID]
	if !ok {
		return storage.ErrNotFound
	}

	coupon.LayoutPosition, coupon.IsPopular = current.LayoutPosition, current.IsPopular
	coupon.LatestLayoutPosition, coupon.IsLatest = current.LatestLayoutPosition, current.IsLatest
	coupon.CreatedAt = current.CreatedAt
	s.coupons.put(coupon.ID, coupon)

	return nil
}

func (s *Storage) UpdateCouponPopularSlot(_ context.Context, id string, position *int, popular bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon, ok := s.coupons.items[id]
	if !ok {
		return storage.ErrNotFound
	}

	coupon.LayoutPosition, coupon.IsPopular = copyInt(position), popular
	s.coupons.put(id, coupon)

	return nil
}

func (s *Storage) UpdateCouponLatestSlot(_ context.Context, id string, position *int, latest bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon, ok := s.coupons.items[id]
	if !ok {
		return storage.ErrNotFound
	}

	coupon.LatestLayoutPosition, coupon.IsLatest = copyInt(position), latest
	s.coupons.put(id, coupon)

	return nil
}

// BulkInsertCoupons stores the whole batch or nothing.
func (s *Storage) BulkInsertCoupons(_ context.Context, coupons []storage.Coupon) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range coupons {
		if _, ok := s.stores.items[c.StoreID]; !ok {
			return nil, storage.ErrNotFound
		}
	}

	ids := make([]string, 0, len(coupons))

	for _, c := range coupons {
		c.ID = newID(c.ID)
		c.CreatedAt = s.now()
		s.coupons.put(c.ID, c)
		ids = append(ids, c.ID)
	}

	return ids, nil
}

func (s *Storage) CreateStore(_ context.Context, store storage.Store) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	store.ID = newID(store.ID)
	store.CreatedAt = s.now()
	s.stores.put(store.ID, store)

	return store.ID, nil
}

func (s *Storage) GetStore(_ context.Context, id string) (storage.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, ok := s.stores.items[id]
	if !ok {
		return storage.Store{}, storage.ErrNotFound
	}

	return store, nil
}

func (s *Storage) ListStores(context.Context) ([]storage.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stores.list(), nil
}

func (s *Storage) UpdateStore(_ context.Context, store storage.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.stores.items[store.ID]
	if !ok {
		return storage.ErrNotFound
	}

	store.LayoutPosition, store.IsTrending, store.CreatedAt = current.LayoutPosition, current.IsTrending, current.CreatedAt
	s.stores.put(store.ID, store)

	return nil
}

func (s *Storage) UpdateStoreSlot(_ context.Context, id string, position *int, trending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	store, ok := s.stores.items[id]
	if !ok {
		return storage.ErrNotFound
	}

	store.LayoutPosition, store.IsTrending = copyInt(position), trending
	s.stores.put(id, store)

	return nil
}

func (s *Storage) BulkInsertStores(_ context.Context, stores []storage.Store) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(stores))

	for _, st := range stores {
		st.ID = newID(st.ID)
		st.CreatedAt = s.now()
		s.stores.put(st.ID, st)
		ids = append(ids, st.ID)
	}

	return ids, nil
}

func (s *Storage) FindStoreIDByName(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.stores.order {
		if strings.EqualFold(s.stores.items[id].Name, strings.TrimSpace(name)) {
			return id, nil
		}
	}

	return "", storage.ErrNotFound
}

func newID(id string) string {
	if id != "" {
		return id
	}

	return uuid.NewString()
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}

	c := *v

	return &c
}
