package layout

import (
	"context"
	"fmt"
	"sort"
)

// Accessor exposes the slot fields of a record type.
type Accessor[T any] struct {
	ID          func(T) string
	Label       func(T) string
	Position    func(T) *int
	SetPosition func(*T, *int)
	Flag        func(T) bool
	SetFlag     func(*T, bool)
}

// Store loads every record of one context and persists slot changes of a
// single record (position and gating flag).
type Store[T any] interface {
	List(ctx context.Context) ([]T, error)
	SaveSlot(ctx context.Context, item T) error
}

type Logger interface {
	Warn(msg string, keysAndValues ...interface{})
}

type Result struct {
	Context  string    `json:"context"`
	Position *int      `json:"position"`
	Evicted  *Occupant `json:"evicted,omitempty"`
}

type Allocator[T any] struct {
	context Context
	access  Accessor[T]
	store   Store[T]
	logger  Logger
}

func New[T any](c Context, access Accessor[T], store Store[T], logger Logger) *Allocator[T] {
	return &Allocator[T]{context: c, access: access, store: store, logger: logger}
}

func (a *Allocator[T]) Context() Context {
	return a.context
}

// Assign moves record to desired. A nil desired un-assigns the record,
// clearing both its position and its gating flag.
//
// When another flagged record holds the slot, confirm decides. A refusal
// returns a *DeclinedError and writes nothing. On consent the occupant's
// position is cleared first and then the record is saved; the two writes are
// independent, so a failure in between leaves the slot empty rather than
// doubly held. The occupant keeps its gating flag.
func (a *Allocator[T]) Assign(ctx context.Context, record T, desired *int, confirm Confirmer) (T, Result, error) {
	result := Result{Context: a.context.Key}

	if err := a.context.Validate(desired); err != nil {
		return record, result, err
	}

	if desired == nil {
		a.access.SetPosition(&record, nil)
		a.access.SetFlag(&record, false)

		if err := a.store.SaveSlot(ctx, record); err != nil {
			return record, result, fmt.Errorf("cannot clear %s slot, %w", a.context.Key, err)
		}

		return record, result, nil
	}

	occupant, found, err := a.Occupant(ctx, a.access.ID(record), *desired)
	if err != nil {
		return record, result, err
	}

	if found {
		evicted, err := a.evict(ctx, occupant, *desired, confirm)
		if err != nil {
			return record, result, err
		}

		result.Evicted = &evicted
	}

	a.access.SetPosition(&record, Ptr(*desired))
	a.access.SetFlag(&record, true)

	if err := a.store.SaveSlot(ctx, record); err != nil {
		return record, result, fmt.Errorf("cannot assign %s slot %d, %w", a.context.Key, *desired, err)
	}

	result.Position = Ptr(*desired)

	return record, result, nil
}

// Check asks confirm about the current holder of desired without writing
// anything. It lets a caller refuse a whole save before touching the record.
// The returned occupant is the one confirm agreed to evict, nil when the slot
// was free.
func (a *Allocator[T]) Check(ctx context.Context, excludeID string, desired *int, confirm Confirmer) (*Occupant, error) {
	if err := a.context.Validate(desired); err != nil {
		return nil, err
	}

	if desired == nil {
		return nil, nil
	}

	occupant, found, err := a.Occupant(ctx, excludeID, *desired)
	if err != nil || !found {
		return nil, err
	}

	held := a.toOccupant(occupant, *desired)
	if err := a.confirm(ctx, held, confirm); err != nil {
		return nil, err
	}

	return &held, nil
}

// SetFlag toggles the gating flag. Turning it off also clears the position.
func (a *Allocator[T]) SetFlag(ctx context.Context, record T, on bool) (T, error) {
	a.access.SetFlag(&record, on)
	if !on {
		a.access.SetPosition(&record, nil)
	}

	if err := a.store.SaveSlot(ctx, record); err != nil {
		return record, fmt.Errorf("cannot update %s flag, %w", a.context.Key, err)
	}

	return record, nil
}

// Occupant finds the flagged record other than excludeID holding position.
// Should the slot be held more than once, the first holder is returned and
// the rest are reported.
func (a *Allocator[T]) Occupant(ctx context.Context, excludeID string, position int) (T, bool, error) {
	var zero T

	items, err := a.store.List(ctx)
	if err != nil {
		return zero, false, fmt.Errorf("cannot load %s records, %w", a.context.Key, err)
	}

	var holders []T

	for _, item := range items {
		if a.access.ID(item) == excludeID || !a.holds(item, position) {
			continue
		}

		holders = append(holders, item)
	}

	if len(holders) == 0 {
		return zero, false, nil
	}

	if len(holders) > 1 && a.logger != nil {
		ids := make([]string, 0, len(holders))
		for _, h := range holders {
			ids = append(ids, a.access.ID(h))
		}

		a.logger.Warn("slot held by several records", "context", a.context.Key, "position", position, "ids", ids)
	}

	return holders[0], true, nil
}

// Board maps every occupied position to its first flagged holder, rebuilt
// from the store on each call.
func (a *Allocator[T]) Board(ctx context.Context) ([]Occupant, error) {
	items, err := a.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load %s records, %w", a.context.Key, err)
	}

	seen := make(map[int]struct{})
	board := make([]Occupant, 0, a.context.Slots)

	for _, item := range items {
		pos := a.access.Position(item)
		if pos == nil || !a.access.Flag(item) || a.context.Validate(pos) != nil {
			continue
		}

		if _, ok := seen[*pos]; ok {
			continue
		}

		seen[*pos] = struct{}{}
		board = append(board, a.toOccupant(item, *pos))
	}

	sort.Slice(board, func(i, j int) bool { return board[i].Position < board[j].Position })

	return board, nil
}

func (a *Allocator[T]) evict(ctx context.Context, occupant T, position int, confirm Confirmer) (Occupant, error) {
	evicted := a.toOccupant(occupant, position)

	if err := a.confirm(ctx, evicted, confirm); err != nil {
		return evicted, err
	}

	a.access.SetPosition(&occupant, nil)

	if err := a.store.SaveSlot(ctx, occupant); err != nil {
		return evicted, fmt.Errorf("cannot evict %q from %s slot %d, %w", evicted.Label, a.context.Key, position, err)
	}

	return evicted, nil
}

func (a *Allocator[T]) confirm(ctx context.Context, occupant Occupant, confirm Confirmer) error {
	ok := false

	if confirm != nil {
		var err error

		ok, err = confirm.ConfirmReplace(ctx, occupant)
		if err != nil {
			return fmt.Errorf("cannot confirm slot replacement, %w", err)
		}
	}

	if !ok {
		return &DeclinedError{Context: a.context.Key, Occupant: occupant}
	}

	return nil
}

func (a *Allocator[T]) holds(item T, position int) bool {
	pos := a.access.Position(item)

	return pos != nil && *pos == position && a.access.Flag(item)
}

func (a *Allocator[T]) toOccupant(item T, position int) Occupant {
	return Occupant{ID: a.access.ID(item), Label: a.access.Label(item), Position: position}
}
