package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fuchsoria/couponslots/internal/importer"
	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/Fuchsoria/couponslots/internal/storage"
	"go.uber.org/zap"
)

var ErrUnknownEntity = errors.New("unknown entity")

type App struct {
	logger    Logger
	storage   Storage
	publisher Publisher

	banners        family[storage.Banner]
	popularCoupons family[storage.Coupon]
	latestCoupons  family[storage.Coupon]
	trendingStores family[storage.Store]
}

type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	GetInstance() *zap.Logger
}

type Storage interface {
	CreateBanner(ctx context.Context, banner storage.Banner) (string, error)
	GetBanner(ctx context.Context, id string) (storage.Banner, error)
	ListBanners(ctx context.Context) ([]storage.Banner, error)
	UpdateBanner(ctx context.Context, banner storage.Banner) error
	UpdateBannerSlot(ctx context.Context, id string, position *int, active bool) error

	CreateCoupon(ctx context.Context, coupon storage.Coupon) (string, error)
	GetCoupon(ctx context.Context, id string) (storage.Coupon, error)
	ListCoupons(ctx context.Context) ([]storage.Coupon, error)
	UpdateCoupon(ctx context.Context, coupon storage.Coupon) error
	UpdateCouponPopularSlot(ctx context.Context, id string, position *int, popular bool) error
	UpdateCouponLatestSlot(ctx context.Context, id string, position *int, latest bool) error
	BulkInsertCoupons(ctx context.Context, coupons []storage.Coupon) ([]string, error)

	CreateStore(ctx context.Context, store storage.Store) (string, error)
	GetStore(ctx context.Context, id string) (storage.Store, error)
	ListStores(ctx context.Context) ([]storage.Store, error)
	UpdateStore(ctx context.Context, store storage.Store) error
	UpdateStoreSlot(ctx context.Context, id string, position *int, trending bool) error
	BulkInsertStores(ctx context.Context, stores []storage.Store) ([]string, error)
}

func New(logger Logger, storage Storage, publisher Publisher) *App {
	if publisher == nil {
		publisher = NopPublisher{}
	}

	a := &App{logger: logger, storage: storage, publisher: publisher}

	a.banners = newFamily(layout.Banners, bannerAccess, bannerSlots{storage}, storage.GetBanner, a)
	a.popularCoupons = newFamily(layout.PopularCoupons, popularCouponAccess, popularCouponSlots{storage}, storage.GetCoupon, a)
	a.latestCoupons = newFamily(layout.LatestCoupons, latestCouponAccess, latestCouponSlots{storage}, storage.GetCoupon, a)
	a.trendingStores = newFamily(layout.TrendingStores, trendingStoreAccess, trendingStoreSlots{storage}, storage.GetStore, a)

	return a
}

func (a *App) GetLogger() Logger {
	return a.logger
}

func (a *App) GetStorage() Storage {
	return a.storage
}

// CreateBanner stores a banner and pins it to its requested slot. A refused
// slot replacement aborts the whole create.
func (a *App) CreateBanner(ctx context.Context, banner storage.Banner, confirm layout.Confirmer) (string, error) {
	blank := storage.Banner{}
	replace, err := a.banners.check(ctx, blank, banner, confirm)
	if err != nil {
		return "", err
	}

	wanted := banner
	banner.LayoutPosition, banner.IsActive = nil, false

	id, err := a.storage.CreateBanner(ctx, banner)
	if err != nil {
		return "", err
	}

	banner.ID, wanted.ID = id, id

	if err := a.banners.apply(ctx, banner, wanted, replace); err != nil {
		return id, err
	}

	return id, nil
}

func (a *App) GetBanner(ctx context.Context, id string) (storage.Banner, error) {
	return a.storage.GetBanner(ctx, id)
}

func (a *App) ListBanners(ctx context.Context) ([]storage.Banner, error) {
	return a.storage.ListBanners(ctx)
}

// UpdateBanner edits a banner. Slot conflicts are confirmed before anything
// is written; a refusal leaves the banner untouched.
func (a *App) UpdateBanner(ctx context.Context, banner storage.Banner, confirm layout.Confirmer) error {
	current, err := a.storage.GetBanner(ctx, banner.ID)
	if err != nil {
		return err
	}

	replace, err := a.banners.check(ctx, current, banner, confirm)
	if err != nil {
		return err
	}

	if err := a.storage.UpdateBanner(ctx, banner); err != nil {
		return err
	}

	return a.banners.apply(ctx, current, banner, replace)
}

func (a *App) CreateCoupon(ctx context.Context, coupon storage.Coupon, confirm layout.Confirmer) (string, error) {
	if _, err := a.storage.GetStore(ctx, coupon.StoreID); err != nil {
		return "", fmt.Errorf("cannot use store %q, %w", coupon.StoreID, err)
	}

	blank := storage.Coupon{}
	replacePopular, err := a.popularCoupons.check(ctx, blank, coupon, confirm)
	if err != nil {
		return "", err
	}

	replaceLatest, err := a.latestCoupons.check(ctx, blank, coupon, confirm)
	if err != nil {
		return "", err
	}

	wanted := coupon
	coupon.LayoutPosition, coupon.IsPopular = nil, false
	coupon.LatestLayoutPosition, coupon.IsLatest = nil, false

	id, err := a.storage.CreateCoupon(ctx, coupon)
	if err != nil {
		return "", err
	}

	coupon.ID, wanted.ID = id, id

	if err := a.popularCoupons.apply(ctx, coupon, wanted, replacePopular); err != nil {
		return id, err
	}

	return id, a.latestCoupons.apply(ctx, coupon, wanted, replaceLatest)
}

func (a *App) GetCoupon(ctx context.Context, id string) (storage.Coupon, error) {
	return a.storage.GetCoupon(ctx, id)
}

func (a *App) ListCoupons(ctx context.Context) ([]storage.Coupon, error) {
	return a.storage.ListCoupons(ctx)
}

func (a *App) UpdateCoupon(ctx context.Context, coupon storage.Coupon, confirm layout.Confirmer) error {
	current, err := a.storage.GetCoupon(ctx, coupon.ID)
	if err != nil {
		return err
	}

	if coupon.StoreID != current.StoreID {
		if _, err := a.storage.GetStore(ctx, coupon.StoreID); err != nil {
			return fmt.Errorf("cannot use store %q, %w", coupon.StoreID, err)
		}
	}

	replacePopular, err := a.popularCoupons.check(ctx, current, coupon, confirm)
	if err != nil {
		return err
	}

	replaceLatest, err := a.latestCoupons.check(ctx, current, coupon, confirm)
	if err != nil {
		return err
	}

	if err := a.storage.UpdateCoupon(ctx, coupon); err != nil {
		return err
	}

	if err := a.popularCoupons.apply(ctx, current, coupon, replacePopular); err != nil {
		return err
	}

	return a.latestCoupons.apply(ctx, current, coupon, replaceLatest)
}

func (a *App) CreateStore(ctx context.Context, store storage.Store, confirm layout.Confirmer) (string, error) {
	if store.Slug == "" {
		store.Slug = importer.Slugify(store.Name)
	}

	blank := storage.Store{}
	replace, err := a.trendingStores.check(ctx, blank, store, confirm)
	if err != nil {
		return "", err
	}

	wanted := store
	store.LayoutPosition, store.IsTrending = nil, false

	id, err := a.storage.CreateStore(ctx, store)
	if err != nil {
		return "", err
	}

	store.ID, wanted.ID = id, id

	return id, a.trendingStores.apply(ctx, store, wanted, replace)
}

func (a *App) GetStore(ctx context.Context, id string) (storage.Store, error) {
	return a.storage.GetStore(ctx, id)
}

func (a *App) ListStores(ctx context.Context) ([]storage.Store, error) {
	return a.storage.ListStores(ctx)
}

func (a *App) UpdateStore(ctx context.Context, store storage.Store, confirm layout.Confirmer) error {
	current, err := a.storage.GetStore(ctx, store.ID)
	if err != nil {
		return err
	}

	replace, err := a.trendingStores.check(ctx, current, store, confirm)
	if err != nil {
		return err
	}

	if err := a.storage.UpdateStore(ctx, store); err != nil {
		return err
	}

	return a.trendingStores.apply(ctx, current, store, replace)
}
