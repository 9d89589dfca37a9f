package app

import (
	"context"

	"github.com/Fuchsoria/couponslots/internal/layout"
	"github.com/Fuchsoria/couponslots/internal/storage"
)

var (
	bannerAccess = layout.Accessor[storage.Banner]{
		ID:          func(b storage.Banner) string { return b.ID },
		Label:       func(b storage.Banner) string { return b.Title },
		Position:    func(b storage.Banner) *int { return b.LayoutPosition },
		SetPosition: func(b *storage.Banner, p *int) { b.LayoutPosition = p },
		Flag:        func(b storage.Banner) bool { return b.IsActive },
		SetFlag:     func(b *storage.Banner, on bool) { b.IsActive = on },
	}

	popularCouponAccess = layout.Accessor[storage.Coupon]{
		ID:          func(c storage.Coupon) string { return c.ID },
		Label:       storage.Coupon.Label,
		Position:    func(c storage.Coupon) *int { return c.LayoutPosition },
		SetPosition: func(c *storage.Coupon, p *int) { c.LayoutPosition = p },
		Flag:        func(c storage.Coupon) bool { return c.IsPopular },
		SetFlag:     func(c *storage.Coupon, on bool) { c.IsPopular = on },
	}

	latestCouponAccess = layout.Accessor[storage.Coupon]{
		ID:          func(c storage.Coupon) string { return c.ID },
		Label:       storage.Coupon.Label,
		Position:    func(c storage.Coupon) *int { return c.LatestLayoutPosition },
		SetPosition: func(c *storage.Coupon, p *int) { c.LatestLayoutPosition = p },
		Flag:        func(c storage.Coupon) bool { return c.IsLatest },
		SetFlag:     func(c *storage.Coupon, on bool) { c.IsLatest = on },
	}

	trendingStoreAccess = layout.Accessor[storage.Store]{
		ID:          func(s storage.Store) string { return s.ID },
		Label:       func(s storage.Store) string { return s.Name },
		Position:    func(s storage.Store) *int { return s.LayoutPosition },
		SetPosition: func(s *storage.Store, p *int) { s.LayoutPosition = p },
		Flag:        func(s storage.Store) bool { return s.IsTrending },
		SetFlag:     func(s *storage.Store, on bool) { s.IsTrending = on },
	}
)

type bannerSlots struct{ storage Storage }

func (s bannerSlots) List(ctx context.Context) ([]storage.Banner, error) {
	return s.storage.ListBanners(ctx)
}

func (s bannerSlots) SaveSlot(ctx context.Context, b storage.Banner) error {
	return s.storage.UpdateBannerSlot(ctx, b.ID, b.LayoutPosition, b.IsActive)
}

type popularCouponSlots struct{ storage Storage }

func (s popularCouponSlots) List(ctx context.Context) ([]storage.Coupon, error) {
	return s.storage.ListCoupons(ctx)
}

func (s popularCouponSlots) SaveSlot(ctx context.Context, c storage.Coupon) error {
	return s.storage.UpdateCouponPopularSlot(ctx, c.ID, c.LayoutPosition, c.IsPopular)
}

type latestCouponSlots struct{ storage Storage }

func (s latestCouponSlots) List(ctx context.Context) ([]storage.Coupon, error) {
	return s.storage.ListCoupons(ctx)
}

func (s latestCouponSlots) SaveSlot(ctx context.Context, c storage.Coupon) error {
	return s.storage.UpdateCouponLatestSlot(ctx, c.ID, c.LatestLayoutPosition, c.IsLatest)
}

type trendingStoreSlots struct{ storage Storage }

func (s trendingStoreSlots) List(ctx context.Context) ([]storage.Store, error) {
	return s.storage.ListStores(ctx)
}

func (s trendingStoreSlots) SaveSlot(ctx context.Context, st storage.Store) error {
	return s.storage.UpdateStoreSlot(ctx, st.ID, st.LayoutPosition, st.IsTrending)
}

// family binds one slot context to its record type.
type family[T any] struct {
	alloc  *layout.Allocator[T]
	access layout.Accessor[T]
	get    func(ctx context.Context, id string) (T, error)
	app    *App
}

func newFamily[T any](
	c layout.Context,
	access layout.Accessor[T],
	store layout.Store[T],
	get func(ctx context.Context, id string) (T, error),
	app *App,
) family[T] {
	return family[T]{alloc: layout.New(c, access, store, app.logger), access: access, get: get, app: app}
}

func (f family[T]) assign(ctx context.Context, id string, position *int, confirm layout.Confirmer) (layout.Result, error) {
	record, err := f.get(ctx, id)
	if err != nil {
		return layout.Result{Context: f.alloc.Context().Key}, err
	}

	_, res, err := f.alloc.Assign(ctx, record, position, confirm)
	if err != nil {
		return res, err
	}

	f.app.slotChanged(ctx, id, res)

	return res, nil
}

func (f family[T]) setFlag(ctx context.Context, id string, on bool) (T, error) {
	record, err := f.get(ctx, id)
	if err != nil {
		return record, err
	}

	hadPosition := f.access.Position(record)

	record, err = f.alloc.SetFlag(ctx, record, on)
	if err != nil {
		return record, err
	}

	if hadPosition != nil && f.access.Position(record) == nil {
		f.app.slotChanged(ctx, id, layout.Result{Context: f.alloc.Context().Key})
	}

	return record, nil
}

// check asks about conflicts an edit from current to wanted would cause,
// before anything is written. It returns the confirmer apply must use, which
// only agrees to evicting the occupant confirm accepted here.
func (f family[T]) check(ctx context.Context, current, wanted T, confirm layout.Confirmer) (layout.Confirmer, error) {
	pos := f.access.Position(wanted)
	if samePosition(f.access.Position(current), pos) {
		return layout.ConfirmOccupant(""), nil
	}

	held, err := f.alloc.Check(ctx, f.access.ID(current), pos, confirm)
	if err != nil || held == nil {
		return layout.ConfirmOccupant(""), err
	}

	return layout.ConfirmOccupant(held.ID), nil
}

// apply moves current to the slot state of wanted. replace comes from check;
// a slot taken by anyone else in the meantime fails with a *DeclinedError.
// A requested position wins over a contradicting flag.
func (f family[T]) apply(ctx context.Context, current, wanted T, replace layout.Confirmer) error {
	record := current
	pos := f.access.Position(wanted)

	if !samePosition(f.access.Position(current), pos) {
		var (
			res layout.Result
			err error
		)

		record, res, err = f.alloc.Assign(ctx, record, pos, replace)
		if err != nil {
			return err
		}

		f.app.slotChanged(ctx, f.access.ID(record), res)
	}

	flag := f.access.Flag(wanted)
	if f.access.Flag(record) != flag && (pos == nil || flag) {
		if _, err := f.alloc.SetFlag(ctx, record, flag); err != nil {
			return err
		}
	}

	return nil
}

func samePosition(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func (a *App) lookupFamily(key string) (slotFamily, error) {
	c, err := layout.Lookup(key)
	if err != nil {
		return nil, err
	}

	switch c.Key {
	case layout.Banners.Key:
		return a.banners, nil
	case layout.PopularCoupons.Key:
		return a.popularCoupons, nil
	case layout.LatestCoupons.Key:
		return a.latestCoupons, nil
	default:
		return a.trendingStores, nil
	}
}

// slotFamily is the record-type independent view of a family.
type slotFamily interface {
	assignByID(ctx context.Context, id string, position *int, confirm layout.Confirmer) (layout.Result, error)
	setFlagByID(ctx context.Context, id string, on bool) error
	board(ctx context.Context) ([]layout.Occupant, error)
	slots() layout.Context
}

func (f family[T]) assignByID(ctx context.Context, id string, position *int, confirm layout.Confirmer) (layout.Result, error) {
	return f.assign(ctx, id, position, confirm)
}

func (f family[T]) setFlagByID(ctx context.Context, id string, on bool) error {
	_, err := f.setFlag(ctx, id, on)

	return err
}

func (f family[T]) board(ctx context.Context) ([]layout.Occupant, error) {
	return f.alloc.Board(ctx)
}

func (f family[T]) slots() layout.Context {
	return f.alloc.Context()
}

// AssignSlot pins the record id to position in the given context, or clears
// it when position is nil. An occupied slot is handed over only if confirm
// agrees.
func (a *App) AssignSlot(ctx context.Context, contextKey, id string, position *int, confirm layout.Confirmer) (layout.Result, error) {
	f, err := a.lookupFamily(contextKey)
	if err != nil {
		return layout.Result{Context: contextKey}, err
	}

	res, err := f.assignByID(ctx, id, position, confirm)
	if err != nil {
		a.logger.Debug("slot assignment failed", "context", contextKey, "id", id, "error", err.Error())

		return res, err
	}

	return res, nil
}

// SetSlotFlag toggles the gating flag; switching it off unpins the record.
func (a *App) SetSlotFlag(ctx context.Context, contextKey, id string, on bool) error {
	f, err := a.lookupFamily(contextKey)
	if err != nil {
		return err
	}

	return f.setFlagByID(ctx, id, on)
}

// SlotBoard lists the current holder of every occupied position.
func (a *App) SlotBoard(ctx context.Context, contextKey string) ([]layout.Occupant, error) {
	f, err := a.lookupFamily(contextKey)
	if err != nil {
		return nil, err
	}

	return f.board(ctx)
}

func (a *App) SlotContext(contextKey string) (layout.Context, error) {
	f, err := a.lookupFamily(contextKey)
	if err != nil {
		return layout.Context{}, err
	}

	return f.slots(), nil
}
