// Package layout pins records to a fixed number of numbered display slots
// and keeps at most one flagged record per slot.
package layout

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPositionOutOfRange  = errors.New("layout position out of range")
	ErrReplacementDeclined = errors.New("slot replacement declined")
	ErrUnknownContext      = errors.New("unknown layout context")
)

// Context is an independent slot space: an entity type together with one of
// its slot families. Positions run from 1 to Slots.
type Context struct {
	Key   string
	Slots int
}

var (
	Banners        = Context{Key: "banners", Slots: 11}
	PopularCoupons = Context{Key: "popular-coupons", Slots: 8}
	LatestCoupons  = Context{Key: "latest-coupons", Slots: 8}
	TrendingStores = Context{Key: "trending-stores", Slots: 8}
)

func Contexts() []Context {
	return []Context{Banners, PopularCoupons, LatestCoupons, TrendingStores}
}

func Lookup(key string) (Context, error) {
	for _, c := range Contexts() {
		if c.Key == key {
			return c, nil
		}
	}

	return Context{}, fmt.Errorf("%w: %q", ErrUnknownContext, key)
}

// Validate accepts nil (unassigned) or a position within 1..Slots.
func (c Context) Validate(position *int) error {
	if position == nil {
		return nil
	}

	if *position < 1 || *position > c.Slots {
		return fmt.Errorf("%w: %d not in 1..%d for %s", ErrPositionOutOfRange, *position, c.Slots, c.Key)
	}

	return nil
}

// Occupant is the record currently holding a slot.
type Occupant struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
}

// DeclinedError is returned when the caller refused to evict the occupant.
type DeclinedError struct {
	Context  string
	Occupant Occupant
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("%s slot %d is taken by %q", e.Context, e.Occupant.Position, e.Occupant.Label)
}

func (e *DeclinedError) Unwrap() error {
	return ErrReplacementDeclined
}

// Confirmer decides whether an occupant may be evicted from its slot.
type Confirmer interface {
	ConfirmReplace(ctx context.Context, occupant Occupant) (bool, error)
}

// Confirmed is a fixed answer, used when the decision was made before the call.
type Confirmed bool

func (c Confirmed) ConfirmReplace(context.Context, Occupant) (bool, error) {
	return bool(c), nil
}

type ConfirmFunc func(ctx context.Context, occupant Occupant) (bool, error)

func (f ConfirmFunc) ConfirmReplace(ctx context.Context, occupant Occupant) (bool, error) {
	return f(ctx, occupant)
}

// ConfirmOccupant agrees only to evicting the record with the given id. An
// empty id agrees to nothing.
func ConfirmOccupant(id string) Confirmer {
	return ConfirmFunc(func(_ context.Context, occupant Occupant) (bool, error) {
		return id != "" && occupant.ID == id, nil
	})
}

func Ptr(position int) *int {
	return &position
}
