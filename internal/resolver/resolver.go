// Package resolver decides what the build agent does next.
//
// Guards run in a fixed order and the first match wins:
//
//  1. pending-review: unreviewed logs exist, so review them; the queue is not read.
//  2. strategy-boundary: the head unit needs a different strategy than the
//     previous step, so stop without dequeuing.
//  3. execute: dequeue the head and run it, or report that no jobs remain.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/msageha/buildq/internal/logging"
	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
)

// LogSource lists unreviewed logs. review.Scanner implements it.
type LogSource interface {
	Pending() ([]string, error)
}

type Resolver struct {
	Jobs            queue.Handle[model.Job]
	Logs            LogSource
	LogDir          string
	ReviewedPattern string
	Commands        model.CommandsConfig
	Recorder        queue.Recorder
	Log             *logging.Logger
}

// state is what guards inspect. The job queue is loaded, under the queue
// lock, only when a guard first asks for it.
type state struct {
	ctx          context.Context
	r            *Resolver
	lastStrategy string

	loaded  bool
	jobs    []model.Job
	release func() error
}

func (s *state) Jobs() ([]model.Job, error) {
	if s.loaded {
		return s.jobs, nil
	}
	if s.r.Jobs.Locker != nil {
		release, err := s.r.Jobs.Locker.Acquire(s.ctx)
		if err != nil {
			return nil, fmt.Errorf("lock queue: %w", err)
		}
		s.release = release
	}
	jobs, err := s.r.Jobs.Store.Load(s.ctx)
	if err != nil {
		return nil, err
	}
	s.jobs = jobs
	s.loaded = true
	return jobs, nil
}

func (s *state) close() {
	if s.release != nil {
		_ = s.release()
		s.release = nil
	}
}

type guard struct {
	name  string
	check func(s *state) (Instruction, bool, error)
}

// guards is the priority order. Keep execute last: it always matches.
var guards = []guard{
	{name: "pending-review", check: pendingReview},
	{name: "strategy-boundary", check: strategyBoundary},
	{name: "execute", check: execute},
}

// Resolve evaluates the guards for a step whose strategy was lastStrategy
// (empty when there was no previous step). Only the execute outcome mutates
// the queue.
func (r *Resolver) Resolve(ctx context.Context, lastStrategy string) (Instruction, error) {
	// stored strategies are trimmed at enqueue
	s := &state{ctx: ctx, r: r, lastStrategy: strings.TrimSpace(lastStrategy)}
	defer s.close()

	for _, g := range guards {
		ins, ok, err := g.check(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", g.name, err)
		}
		if !ok {
			continue
		}
		r.Log.Debugf("guard=%s action=%s", g.name, ins.Action())
		if ex, isExec := ins.(Execute); isExec {
			if err := r.dequeue(s, ex); err != nil {
				return nil, err
			}
		}
		return ins, nil
	}
	return nil, fmt.Errorf("no guard matched")
}

func (r *Resolver) dequeue(s *state, ex Execute) error {
	rest := s.jobs[1:]
	if err := r.Jobs.Store.Save(s.ctx, append([]model.Job(nil), rest...)); err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	if r.Recorder != nil {
		r.Recorder.Record(s.ctx, queue.Event{
			Type:   queue.EventDequeued,
			Queue:  model.KindJob,
			Unit:   ex.Job,
			Length: ex.Remaining,
		})
	}
	return nil
}

func pendingReview(s *state) (Instruction, bool, error) {
	if s.r.Logs == nil {
		return nil, false, nil
	}
	logs, err := s.r.Logs.Pending()
	if err != nil {
		return nil, false, err
	}
	if len(logs) == 0 {
		return nil, false, nil
	}
	return ReviewLogs{Dir: s.r.LogDir, Logs: logs, ReviewedPattern: s.r.ReviewedPattern}, true, nil
}

func strategyBoundary(s *state) (Instruction, bool, error) {
	if s.lastStrategy == "" {
		return nil, false, nil
	}
	jobs, err := s.Jobs()
	if err != nil {
		return nil, false, err
	}
	if len(jobs) == 0 || jobs[0].Strategy == s.lastStrategy {
		return nil, false, nil
	}
	return SwitchContext{Previous: s.lastStrategy, Next: jobs[0].Strategy, Pending: len(jobs)}, true, nil
}

func execute(s *state) (Instruction, bool, error) {
	jobs, err := s.Jobs()
	if err != nil {
		return nil, false, err
	}
	if len(jobs) == 0 {
		return NoJobs{}, true, nil
	}
	return Execute{Job: jobs[0], Remaining: len(jobs) - 1, Commands: s.r.Commands}, true, nil
}
