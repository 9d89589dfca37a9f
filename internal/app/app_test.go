package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Fuchsoria/couponslots/internal/importer"
	"github.com/Fuchsoria/couponslots/internal/ingest"
	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/Fuchsoria/couponslots/internal/logger"
	"github.com/Fuchsoria/couponslots/internal/storage"
	memorystorage "github.com/Fuchsoria/couponslots/internal/storage/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type message struct {
	key  string
	body []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, key string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, message{key, body})

	return p.err
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		keys = append(keys, m.key)
	}

	return keys
}

type fixture struct {
	app       *App
	storage   *memorystorage.Storage
	publisher *fakePublisher
	logs      *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	st := memorystorage.New()
	pub := &fakePublisher{}

	return fixture{app: New(logger.Wrap(zap.New(core)), st, pub), storage: st, publisher: pub, logs: logs}
}

func (f fixture) store(t *testing.T, name string) string {
	t.Helper()

	id, err := f.app.CreateStore(context.Background(), storage.Store{Name: name}, nil)
	require.NoError(t, err)

	return id
}

func (f fixture) coupon(t *testing.T, c storage.Coupon) string {
	t.Helper()

	id, err := f.app.CreateCoupon(context.Background(), c, nil)
	require.NoError(t, err)

	return id
}

func TestSlotReplacement(t *testing.T) {
	ctx := context.Background()

	t.Run("test confirmed replacement evicts occupant and keeps its flag", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.store(t, "Acme")
		a := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "A", IsPopular: true, LayoutPosition: layout.Ptr(3)})
		b := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "B"})

		res, err := f.app.AssignSlot(ctx, layout.PopularCoupons.Key, b, layout.Ptr(3), layout.Confirmed(true))
		require.NoError(t, err)
		require.Equal(t, 3, *res.Position)
		require.Equal(t, a, res.Evicted.ID)

		first, err := f.app.GetCoupon(ctx, a)
		require.NoError(t, err)
		require.Nil(t, first.LayoutPosition)
		require.True(t, first.IsPopular)

		second, err := f.app.GetCoupon(ctx, b)
		require.NoError(t, err)
		require.Equal(t, 3, *second.LayoutPosition)
		require.True(t, second.IsPopular)

		board, err := f.app.SlotBoard(ctx, layout.PopularCoupons.Key)
		require.NoError(t, err)
		require.Equal(t, []layout.Occupant{{ID: b, Label: "B", Position: 3}}, board)

		require.Contains(t, f.publisher.keys(), EventSlotEvicted)
	})

	t.Run("test declined replacement writes nothing", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.store(t, "Acme")
		a := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "A", IsPopular: true, LayoutPosition: layout.Ptr(3)})
		b := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "B"})

		_, err := f.app.AssignSlot(ctx, layout.PopularCoupons.Key, b, layout.Ptr(3), layout.Confirmed(false))

		var declined *layout.DeclinedError
		require.True(t, errors.As(err, &declined))
		require.Equal(t, a, declined.Occupant.ID)

		first, _ := f.app.GetCoupon(ctx, a)
		require.Equal(t, 3, *first.LayoutPosition)

		second, _ := f.app.GetCoupon(ctx, b)
		require.Nil(t, second.LayoutPosition)
		require.False(t, second.IsPopular)
	})

	t.Run("test explicit unassign clears flag", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.store(t, "Acme")
		id := f.coupon(t, storage.Coupon{
			StoreID: storeID, Title: "A",
			IsPopular: true, LayoutPosition: layout.Ptr(3),
			IsLatest: true, LatestLayoutPosition: layout.Ptr(1),
		})

		res, err := f.app.AssignSlot(ctx, layout.PopularCoupons.Key, id, nil, nil)
		require.NoError(t, err)
		require.Nil(t, res.Position)
		require.Nil(t, res.Evicted)

		c, err := f.app.GetCoupon(ctx, id)
		require.NoError(t, err)
		require.Nil(t, c.LayoutPosition)
		require.False(t, c.IsPopular)
		require.Equal(t, 1, *c.LatestLayoutPosition)
		require.True(t, c.IsLatest)
		require.Contains(t, f.publisher.keys(), EventSlotCleared)
	})

	t.Run("test contexts are independent", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.store(t, "Acme")
		a := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "A", IsPopular: true, LayoutPosition: layout.Ptr(2)})
		b := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "B"})

		_, err := f.app.AssignSlot(ctx, layout.LatestCoupons.Key, b, layout.Ptr(2), nil)
		require.NoError(t, err)

		first, _ := f.app.GetCoupon(ctx, a)
		require.Equal(t, 2, *first.LayoutPosition)

		second, _ := f.app.GetCoupon(ctx, b)
		require.Equal(t, 2, *second.LatestLayoutPosition)
		require.True(t, second.IsLatest)
		require.Nil(t, second.LayoutPosition)
	})

	t.Run("test out of range and unknown context", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.app.CreateBanner(ctx, storage.Banner{Title: "Hero"}, nil)
		require.NoError(t, err)

		_, err = f.app.AssignSlot(ctx, layout.Banners.Key, id, layout.Ptr(12), nil)
		require.ErrorIs(t, err, layout.ErrPositionOutOfRange)

		_, err = f.app.AssignSlot(ctx, layout.Banners.Key, id, layout.Ptr(11), nil)
		require.NoError(t, err)

		_, err = f.app.AssignSlot(ctx, "sidebar", id, layout.Ptr(1), nil)
		require.ErrorIs(t, err, layout.ErrUnknownContext)
	})

	t.Run("test missing record", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.app.AssignSlot(ctx, layout.TrendingStores.Key, "ghost", layout.Ptr(1), nil)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSaveWithSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("test declined create aborts before insert", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.app.CreateStore(ctx, storage.Store{Name: "Old", IsTrending: true, LayoutPosition: layout.Ptr(1)}, nil)
		require.NoError(t, err)

		_, err = f.app.CreateStore(ctx, storage.Store{Name: "New", IsTrending: true, LayoutPosition: layout.Ptr(1)}, layout.Confirmed(false))
		require.ErrorIs(t, err, layout.ErrReplacementDeclined)

		stores, err := f.app.ListStores(ctx)
		require.NoError(t, err)
		require.Len(t, stores, 1)
		require.Equal(t, "Old", stores[0].Name)
		require.Equal(t, 1, *stores[0].LayoutPosition)
	})

	t.Run("test declined update leaves record untouched", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.app.CreateBanner(ctx, storage.Banner{Title: "First", IsActive: true, LayoutPosition: layout.Ptr(5)}, nil)
		require.NoError(t, err)

		id, err := f.app.CreateBanner(ctx, storage.Banner{Title: "Second"}, nil)
		require.NoError(t, err)

		err = f.app.UpdateBanner(ctx, storage.Banner{ID: id, Title: "Renamed", IsActive: true, LayoutPosition: layout.Ptr(5)}, layout.Confirmed(false))
		require.ErrorIs(t, err, layout.ErrReplacementDeclined)

		banner, err := f.app.GetBanner(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "Second", banner.Title)
		require.Nil(t, banner.LayoutPosition)
	})

	t.Run("test confirmed update takes the slot", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.app.CreateBanner(ctx, storage.Banner{Title: "First", IsActive: true, LayoutPosition: layout.Ptr(5)}, nil)
		require.NoError(t, err)

		id, err := f.app.CreateBanner(ctx, storage.Banner{Title: "Second"}, nil)
		require.NoError(t, err)

		err = f.app.UpdateBanner(ctx, storage.Banner{ID: id, Title: "Renamed", LayoutPosition: layout.Ptr(5)}, layout.Confirmed(true))
		require.NoError(t, err)

		banner, _ := f.app.GetBanner(ctx, id)
		require.Equal(t, "Renamed", banner.Title)
		require.Equal(t, 5, *banner.LayoutPosition)
		require.True(t, banner.IsActive, "a pinned banner is active")

		evicted, _ := f.app.GetBanner(ctx, first)
		require.Nil(t, evicted.LayoutPosition)
		require.True(t, evicted.IsActive)
	})

	t.Run("test keeping the own slot needs no confirmation", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.app.CreateBanner(ctx, storage.Banner{Title: "Hero", IsActive: true, LayoutPosition: layout.Ptr(2)}, nil)
		require.NoError(t, err)

		err = f.app.UpdateBanner(ctx, storage.Banner{ID: id, Title: "Hero 2", IsActive: true, LayoutPosition: layout.Ptr(2)}, nil)
		require.NoError(t, err)
	})

	t.Run("test update without position keeps requested flag", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.app.CreateStore(ctx, storage.Store{Name: "Acme", IsTrending: true, LayoutPosition: layout.Ptr(4)}, nil)
		require.NoError(t, err)

		current, err := f.app.GetStore(ctx, id)
		require.NoError(t, err)

		current.LayoutPosition = nil
		require.NoError(t, f.app.UpdateStore(ctx, current, nil))

		store, _ := f.app.GetStore(ctx, id)
		require.Nil(t, store.LayoutPosition)
		require.True(t, store.IsTrending)
	})

	t.Run("test slot taken after confirmation is not handed over", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.store(t, "Acme")
		first := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "First", IsPopular: true, LayoutPosition: layout.Ptr(3)})
		late := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "Late"})
		id := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "Mine"})

		current, err := f.app.GetCoupon(ctx, id)
		require.NoError(t, err)

		wanted := current
		wanted.LayoutPosition, wanted.IsPopular = layout.Ptr(3), true

		replace, err := f.app.popularCoupons.check(ctx, current, wanted, layout.Confirmed(true))
		require.NoError(t, err)

		_, err = f.app.AssignSlot(ctx, layout.PopularCoupons.Key, late, layout.Ptr(3), layout.Confirmed(true))
		require.NoError(t, err)

		err = f.app.popularCoupons.apply(ctx, current, wanted, replace)

		var declined *layout.DeclinedError
		require.ErrorAs(t, err, &declined)
		require.Equal(t, late, declined.Occupant.ID)

		holder, _ := f.app.GetCoupon(ctx, late)
		require.Equal(t, 3, *holder.LayoutPosition)

		mine, _ := f.app.GetCoupon(ctx, id)
		require.Nil(t, mine.LayoutPosition)

		evicted, _ := f.app.GetCoupon(ctx, first)
		require.Nil(t, evicted.LayoutPosition)
	})

	t.Run("test confirmed occupant is handed over on apply", func(t *testing.T) {
		f := newFixture(t)
		storeID := f.store(t, "Acme")
		first := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "First", IsPopular: true, LayoutPosition: layout.Ptr(3)})
		id := f.coupon(t, storage.Coupon{StoreID: storeID, Title: "Mine"})

		current, err := f.app.GetCoupon(ctx, id)
		require.NoError(t, err)

		wanted := current
		wanted.LayoutPosition = layout.Ptr(3)

		replace, err := f.app.popularCoupons.check(ctx, current, wanted, layout.Confirmed(true))
		require.NoError(t, err)
		require.NoError(t, f.app.popularCoupons.apply(ctx, current, wanted, replace))

		mine, _ := f.app.GetCoupon(ctx, id)
		require.Equal(t, 3, *mine.LayoutPosition)

		evicted, _ := f.app.GetCoupon(ctx, first)
		require.Nil(t, evicted.LayoutPosition)
		require.True(t, evicted.IsPopular)
	})

	t.Run("test coupon needs an existing store", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.app.CreateCoupon(ctx, storage.Coupon{StoreID: "ghost", Title: "X"}, nil)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestSetSlotFlag(t *testing.T) {
	ctx := context.Background()

	t.Run("test flag off clears position", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.app.CreateStore(ctx, storage.Store{Name: "Acme", IsTrending: true, LayoutPosition: layout.Ptr(4)}, nil)
		require.NoError(t, err)

		require.NoError(t, f.app.SetSlotFlag(ctx, layout.TrendingStores.Key, id, false))

		store, _ := f.app.GetStore(ctx, id)
		require.False(t, store.IsTrending)
		require.Nil(t, store.LayoutPosition)
		require.Contains(t, f.publisher.keys(), EventSlotCleared)

		board, err := f.app.SlotBoard(ctx, layout.TrendingStores.Key)
		require.NoError(t, err)
		require.Empty(t, board)
	})

	t.Run("test flag on keeps record unplaced", func(t *testing.T) {
		f := newFixture(t)
		id := f.store(t, "Acme")

		require.NoError(t, f.app.SetSlotFlag(ctx, layout.TrendingStores.Key, id, true))

		store, _ := f.app.GetStore(ctx, id)
		require.True(t, store.IsTrending)
		require.Nil(t, store.LayoutPosition)
	})
}

func TestImports(t *testing.T) {
	ctx := context.Background()

	t.Run("test coupon upload without store column is rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.app.ImportCoupons(ctx, "deals.csv", []byte("title,code\nA,AAA"))
		require.ErrorIs(t, err, importer.ErrMissingColumn)

		coupons, _ := f.app.ListCoupons(ctx)
		require.Empty(t, coupons)
	})

	t.Run("test unresolved rows are dropped", func(t *testing.T) {
		f := newFixture(t)
		acme := f.store(t, "Acme")

		data := []byte("store_id,Store Name,title,is_popular\n" + acme + ",,One,yes\n0,acme,Two,no\n,Nobody,Three,yes\n")

		preview, err := f.app.PreviewCoupons(ctx, "deals.csv", data)
		require.NoError(t, err)
		require.Equal(t, "csv", preview.Format)
		require.Len(t, preview.Records, 2)

		report, err := f.app.ImportCoupons(ctx, "deals.csv", data)
		require.NoError(t, err)
		require.Equal(t, ImportReport{Entity: EntityCoupons, Format: "csv", Total: 3, Inserted: 2, Dropped: 1}, report)

		coupons, _ := f.app.ListCoupons(ctx)
		require.Len(t, coupons, 2)
		require.True(t, coupons[0].IsPopular)
		require.Nil(t, coupons[0].LayoutPosition)

		keys := f.publisher.keys()
		require.Equal(t, EventImportCompleted, keys[len(keys)-1])

		var event ImportEvent
		require.NoError(t, json.Unmarshal(f.publisher.messages[len(f.publisher.messages)-1].body, &event))
		require.Equal(t, 2, event.Inserted)
	})

	t.Run("test stores import and unsupported format", func(t *testing.T) {
		f := newFixture(t)

		report, err := f.app.ImportStores(ctx, "stores.csv", []byte("name,trending\nAcme,1\n,1\n"))
		require.NoError(t, err)
		require.Equal(t, 1, report.Inserted)
		require.Equal(t, 1, report.Dropped)

		_, err = f.app.ImportStores(ctx, "stores.pdf", []byte("x"))
		require.ErrorIs(t, err, ingest.ErrUnsupportedFormat)
	})

	t.Run("test columns and template", func(t *testing.T) {
		f := newFixture(t)

		cols, err := f.app.ImportColumns(EntityStores)
		require.NoError(t, err)
		require.Equal(t, "name", cols[0].Name)

		tpl, err := f.app.ImportTemplate(EntityCoupons)
		require.NoError(t, err)
		require.Contains(t, tpl, "store_id,Store Name,title")

		_, err = f.app.ImportColumns("banners")
		require.ErrorIs(t, err, ErrUnknownEntity)
	})
}

func TestPublishFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	id, err := f.app.CreateStore(context.Background(), storage.Store{Name: "Acme", LayoutPosition: layout.Ptr(1)}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 1, f.logs.FilterMessage("cannot publish event").Len())
}
