package queue

import (
	"context"
	"fmt"

	"github.com/msageha/buildq/internal/lock"
)

// End selects where a new unit is inserted.
type End int

const (
	Front End = iota
	Back
)

func (e End) String() string {
	if e == Front {
		return "front"
	}
	return "back"
}

// Insert returns units with u added at the given end. Repeated Front inserts
// run last-in-first-out.
func Insert[T any](units []T, u T, end End) []T {
	if end == Front {
		return Unshift(units, u)
	}
	return Push(units, u)
}

func Push[T any](units []T, u T) []T {
	out := make([]T, 0, len(units)+1)
	out = append(out, units...)
	return append(out, u)
}

func Unshift[T any](units []T, u T) []T {
	out := make([]T, 0, len(units)+1)
	out = append(out, u)
	return append(out, units...)
}

// Shift removes the head. ok is false on an empty queue.
func Shift[T any](units []T) (head T, rest []T, ok bool) {
	if len(units) == 0 {
		return head, units, false
	}
	return units[0], append([]T(nil), units[1:]...), true
}

// Mutation inspects the loaded queue and returns the queue to persist.
// Returning changed=false skips the write.
type Mutation[T any] func(units []T) (next []T, changed bool, err error)

// Update runs one load → mutate → save cycle while holding locker. Nothing is
// cached between calls: every cycle starts from what is on disk.
func Update[T any](ctx context.Context, store Store[T], locker lock.Locker, fn Mutation[T]) ([]T, error) {
	if locker != nil {
		release, err := locker.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("lock queue: %w", err)
		}
		defer release()
	}

	units, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	next, changed, err := fn(units)
	if err != nil {
		return nil, err
	}
	if !changed {
		return units, nil
	}

	if err := store.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}
