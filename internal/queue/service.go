package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msageha/buildq/internal/lock"
	"github.com/msageha/buildq/internal/model"
)

// ErrValidation marks rejected input. Nothing is written when it is returned.
var ErrValidation = errors.New("invalid work unit")

// EventType names a recorded queue mutation.
type EventType string

const (
	EventEnqueued  EventType = "enqueued"
	EventDequeued  EventType = "dequeued"
	EventCompleted EventType = "completed"
)

// Event describes one successful mutation.
type Event struct {
	Type   EventType
	Queue  model.Kind
	End    End
	Unit   model.WorkUnit
	Length int
}

// Recorder observes mutations after they are saved. It cannot fail the
// mutation.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// Handle bundles a store with the lock that guards it.
type Handle[T any] struct {
	Store  Store[T]
	Locker lock.Locker
}

// Result reports an enqueued unit and the queue length after insertion.
type Result[T any] struct {
	Unit   T
	Length int
}

// Service carries the enqueue and completion operations for both queue
// flavors.
type Service struct {
	Jobs     Handle[model.Job]
	Groups   Handle[model.Group]
	Now      func() time.Time
	Recorder Recorder
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) record(ctx context.Context, ev Event) {
	if s.Recorder != nil {
		s.Recorder.Record(ctx, ev)
	}
}

// NewJob validates input and builds a simple unit stamped with now.
func NewJob(strategy, description string, now time.Time) (model.Job, error) {
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return model.Job{}, fmt.Errorf("%w: strategy is required", ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return model.Job{}, fmt.Errorf("%w: description is required", ErrValidation)
	}
	id, err := model.NewUnitID(model.KindJob, now)
	if err != nil {
		return model.Job{}, fmt.Errorf("generate ID: %w", err)
	}
	return model.Job{ID: id, Strategy: strategy, Description: description, CreatedAt: now}, nil
}

// NewGroup validates input and builds a nested unit. Steps keep the order
// given.
func NewGroup(strategy string, steps []string, now time.Time) (model.Group, error) {
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return model.Group{}, fmt.Errorf("%w: strategy is required", ErrValidation)
	}
	if len(steps) == 0 {
		return model.Group{}, fmt.Errorf("%w: at least one step is required", ErrValidation)
	}
	for i, step := range steps {
		if strings.TrimSpace(step) == "" {
			return model.Group{}, fmt.Errorf("%w: step %d is empty", ErrValidation, i+1)
		}
	}
	id, err := model.NewUnitID(model.KindGroup, now)
	if err != nil {
		return model.Group{}, fmt.Errorf("generate ID: %w", err)
	}
	return model.Group{ID: id, Strategy: strategy, Steps: append([]string(nil), steps...), CreatedAt: now}, nil
}

func (s *Service) EnqueueJob(ctx context.Context, end End, strategy, description string) (Result[model.Job], error) {
	job, err := NewJob(strategy, description, s.now())
	if err != nil {
		return Result[model.Job]{}, err
	}
	n, err := enqueue(ctx, s.Jobs, job, end)
	if err != nil {
		return Result[model.Job]{}, err
	}
	s.record(ctx, Event{Type: EventEnqueued, Queue: model.KindJob, End: end, Unit: job, Length: n})
	return Result[model.Job]{Unit: job, Length: n}, nil
}

func (s *Service) EnqueueGroup(ctx context.Context, end End, strategy string, steps []string) (Result[model.Group], error) {
	group, err := NewGroup(strategy, steps, s.now())
	if err != nil {
		return Result[model.Group]{}, err
	}
	n, err := enqueue(ctx, s.Groups, group, end)
	if err != nil {
		return Result[model.Group]{}, err
	}
	s.record(ctx, Event{Type: EventEnqueued, Queue: model.KindGroup, End: end, Unit: group, Length: n})
	return Result[model.Group]{Unit: group, Length: n}, nil
}

func enqueue[T any](ctx context.Context, h Handle[T], u T, end End) (int, error) {
	next, err := Update(ctx, h.Store, h.Locker, func(units []T) ([]T, bool, error) {
		return Insert(units, u, end), true, nil
	})
	if err != nil {
		return 0, err
	}
	return len(next), nil
}

// CompleteGroup removes the head of the nested queue on the caller's word
// that it succeeded. An empty queue is a no-op: completed is nil.
func (s *Service) CompleteGroup(ctx context.Context) (completed *model.Group, remaining int, err error) {
	var head model.Group
	var popped bool
	next, err := Update(ctx, s.Groups.Store, s.Groups.Locker, func(units []model.Group) ([]model.Group, bool, error) {
		var rest []model.Group
		head, rest, popped = Shift(units)
		return rest, popped, nil
	})
	if err != nil {
		return nil, 0, err
	}
	if !popped {
		return nil, 0, nil
	}
	s.record(ctx, Event{Type: EventCompleted, Queue: model.KindGroup, Unit: head, Length: len(next)})
	return &head, len(next), nil
}
