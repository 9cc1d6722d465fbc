package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msageha/buildq/internal/lock"
	"github.com/msageha/buildq/internal/model"
)

type recorderFunc func(ev Event)

func (f recorderFunc) Record(_ context.Context, ev Event) { f(ev) }

func newMemoryService(jobs []model.Job, groups []model.Group) (*Service, *MemoryStore[model.Job], *MemoryStore[model.Group]) {
	js := NewMemoryStore(jobs...)
	gs := NewMemoryStore(groups...)
	locks := lock.NewMutexMap()
	svc := &Service{
		Jobs:   Handle[model.Job]{Store: js, Locker: lock.MutexLocker{Map: locks, Key: "jobs"}},
		Groups: Handle[model.Group]{Store: gs, Locker: lock.MutexLocker{Map: locks, Key: "groups"}},
		Now:    func() time.Time { return t0 },
	}
	return svc, js, gs
}

func descriptions(jobs []model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Description
	}
	return out
}

func TestEnqueueJob_FrontAndBack(t *testing.T) {
	a := model.Job{Strategy: "s", Description: "A", CreatedAt: t0}
	b := model.Job{Strategy: "s", Description: "B", CreatedAt: t0}
	ctx := context.Background()

	svc, js, _ := newMemoryService([]model.Job{a, b}, nil)
	res, err := svc.EnqueueJob(ctx, Front, "s", "X")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Length)
	assert.Equal(t, []string{"X", "A", "B"}, descriptions(js.Snapshot()))

	svc, js, _ = newMemoryService([]model.Job{a, b}, nil)
	res, err = svc.EnqueueJob(ctx, Back, "s", "X")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Length)
	assert.Equal(t, []string{"A", "B", "X"}, descriptions(js.Snapshot()))
}

func TestEnqueueJob_StampsUnit(t *testing.T) {
	svc, _, _ := newMemoryService(nil, nil)

	res, err := svc.EnqueueJob(context.Background(), Back, "  strategies/api.md ", "add handler")
	require.NoError(t, err)
	assert.Equal(t, "strategies/api.md", res.Unit.Strategy)
	assert.Equal(t, "add handler", res.Unit.Description)
	assert.True(t, res.Unit.CreatedAt.Equal(t0))
	assert.True(t, model.ValidateID(res.Unit.ID), "id %q", res.Unit.ID)
}

func TestEnqueueJob_Validation(t *testing.T) {
	tests := []struct {
		name        string
		strategy    string
		description string
	}{
		{"missing strategy", "", "do it"},
		{"blank strategy", "   ", "do it"},
		{"missing description", "s.md", ""},
		{"blank description", "s.md", " \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, js, _ := newMemoryService(nil, nil)
			_, err := svc.EnqueueJob(context.Background(), Back, tt.strategy, tt.description)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, 0, js.Saves(), "validation failures must not touch the store")
		})
	}
}

func TestEnqueueGroup_PreservesStepOrder(t *testing.T) {
	svc, _, gs := newMemoryService(nil, nil)
	steps := []string{"x", "y"}

	res, err := svc.EnqueueGroup(context.Background(), Front, "S", steps)
	require.NoError(t, err)
	steps[0] = "mutated"

	groups := gs.Snapshot()
	require.Len(t, groups, 1)
	assert.Equal(t, "S", groups[0].Strategy)
	assert.Equal(t, []string{"x", "y"}, groups[0].Steps)
	assert.Equal(t, 1, res.Length)
	assert.True(t, model.ValidateID(res.Unit.ID))
}

func TestEnqueueGroup_Validation(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		steps    []string
	}{
		{"missing strategy", "", []string{"x"}},
		{"no steps", "S", nil},
		{"blank step", "S", []string{"x", " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, gs := newMemoryService(nil, nil)
			_, err := svc.EnqueueGroup(context.Background(), Back, tt.strategy, tt.steps)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, 0, gs.Saves())
		})
	}
}

func TestEnqueueGroup_BackAppends(t *testing.T) {
	first := model.Group{Strategy: "A", Steps: []string{"1"}, CreatedAt: t0}
	svc, _, gs := newMemoryService(nil, []model.Group{first})

	_, err := svc.EnqueueGroup(context.Background(), Back, "B", []string{"2"})
	require.NoError(t, err)

	groups := gs.Snapshot()
	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Strategy)
	assert.Equal(t, "B", groups[1].Strategy)
}

func TestCompleteGroup_EmptyIsNoOp(t *testing.T) {
	svc, _, gs := newMemoryService(nil, nil)

	for i := 0; i < 2; i++ {
		completed, remaining, err := svc.CompleteGroup(context.Background())
		require.NoError(t, err)
		assert.Nil(t, completed)
		assert.Equal(t, 0, remaining)
		assert.Empty(t, gs.Snapshot())
	}
	assert.Equal(t, 0, gs.Saves())
}

func TestCompleteGroup_RemovesHead(t *testing.T) {
	a := model.Group{Strategy: "A", Steps: []string{"1"}, CreatedAt: t0}
	b := model.Group{Strategy: "B", Steps: []string{"2"}, CreatedAt: t0}
	svc, _, gs := newMemoryService(nil, []model.Group{a, b})

	completed, remaining, err := svc.CompleteGroup(context.Background())
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, "A", completed.Strategy)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, []model.Group{b}, gs.Snapshot())
}

func TestScenario_NestedEnqueueThenComplete(t *testing.T) {
	dir := t.TempDir()
	svc := &Service{
		Groups: Handle[model.Group]{
			Store:  NewGroupStore(filepath.Join(dir, "queue", "groups.yaml"), true),
			Locker: lock.FileLocker{Path: filepath.Join(dir, "locks", "groups.lock"), Timeout: time.Second},
		},
		Now: func() time.Time { return t0 },
	}
	ctx := context.Background()

	_, err := svc.EnqueueGroup(ctx, Front, "S", []string{"x", "y"})
	require.NoError(t, err)

	groups, err := svc.Groups.Store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "S", groups[0].Strategy)
	assert.Equal(t, []string{"x", "y"}, groups[0].Steps)

	completed, remaining, err := svc.CompleteGroup(ctx)
	require.NoError(t, err)
	require.NotNil(t, completed)
	assert.Equal(t, 0, remaining)

	groups, err = svc.Groups.Store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestService_RecordsEvents(t *testing.T) {
	var events []Event
	svc, _, _ := newMemoryService(nil, nil)
	svc.Recorder = recorderFunc(func(ev Event) { events = append(events, ev) })
	ctx := context.Background()

	_, err := svc.EnqueueJob(ctx, Front, "s", "d")
	require.NoError(t, err)
	_, err = svc.EnqueueGroup(ctx, Back, "s", []string{"a"})
	require.NoError(t, err)
	_, _, err = svc.CompleteGroup(ctx)
	require.NoError(t, err)
	_, _, err = svc.CompleteGroup(ctx)
	require.NoError(t, err)
	_, err = svc.EnqueueJob(ctx, Front, "", "d")
	require.Error(t, err)

	require.Len(t, events, 3, "no-ops and failures are not recorded")
	assert.Equal(t, EventEnqueued, events[0].Type)
	assert.Equal(t, model.KindJob, events[0].Queue)
	assert.Equal(t, Front, events[0].End)
	assert.Equal(t, model.KindGroup, events[1].Queue)
	assert.Equal(t, EventCompleted, events[2].Type)
	assert.Equal(t, 0, events[2].Length)
}
