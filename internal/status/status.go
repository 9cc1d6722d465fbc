// Package status reports queue depths and pending review logs.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/msageha/buildq/internal/model"
	"github.com/msageha/buildq/internal/queue"
)

type Report struct {
	Dir    string        `json:"dir"`
	Queues []QueueStatus `json:"queues"`
	Review ReviewStatus  `json:"review"`
}

type QueueStatus struct {
	Name         string `json:"name"`
	Path         string `json:"path,omitempty"`
	Depth        int    `json:"depth"`
	HeadID       string `json:"head_id,omitempty"`
	HeadStrategy string `json:"head_strategy,omitempty"`
	Error        string `json:"error,omitempty"`
}

type ReviewStatus struct {
	Dir     string   `json:"dir"`
	Pending []string `json:"pending"`
}

// LogSource lists unreviewed logs.
type LogSource interface {
	Pending() ([]string, error)
}

// Sources are read without taking queue locks: writers replace files by
// rename, so a reader sees either the old or the new content.
type Sources struct {
	Dir        string
	Jobs       queue.Store[model.Job]
	JobsPath   string
	Groups     queue.Store[model.Group]
	GroupsPath string
	Logs       LogSource
	LogDir     string
}

// Collect loads both queues and scans the log directory concurrently. A
// malformed queue is reported in its QueueStatus rather than failing the
// whole report.
func Collect(ctx context.Context, src Sources) (Report, error) {
	r := Report{
		Dir:    src.Dir,
		Queues: make([]QueueStatus, 2),
		Review: ReviewStatus{Dir: src.LogDir, Pending: []string{}},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.Queues[0] = queueStatus(ctx, "jobs", src.JobsPath, src.Jobs)
		return nil
	})
	g.Go(func() error {
		r.Queues[1] = queueStatus(ctx, "groups", src.GroupsPath, src.Groups)
		return nil
	})
	g.Go(func() error {
		if src.Logs == nil {
			return nil
		}
		logs, err := src.Logs.Pending()
		if err != nil {
			return fmt.Errorf("scan review logs: %w", err)
		}
		if logs != nil {
			r.Review.Pending = logs
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	return r, nil
}

func queueStatus[T model.WorkUnit](ctx context.Context, name, path string, store queue.Store[T]) QueueStatus {
	qs := QueueStatus{Name: name, Path: path}
	if store == nil {
		return qs
	}
	units, err := store.Load(ctx)
	if err != nil {
		qs.Error = err.Error()
		return qs
	}
	qs.Depth = len(units)
	if len(units) > 0 {
		qs.HeadID = units[0].UnitID()
		qs.HeadStrategy = units[0].UnitStrategy()
	}
	return qs
}

// Healthy is false when any queue failed to load.
func (r Report) Healthy() bool {
	for _, q := range r.Queues {
		if q.Error != "" {
			return false
		}
	}
	return true
}

func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
}

func newStyles(styled bool) styles {
	if !styled {
		plain := lipgloss.NewStyle()
		return styles{title: plain, header: plain, ok: plain, warn: plain, bad: plain}
	}
	return styles{
		title:  lipgloss.NewStyle().Bold(true),
		header: lipgloss.NewStyle().Faint(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		bad:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Print writes the human-readable report. styled enables terminal colors.
func Print(w io.Writer, r Report, styled bool) error {
	st := newStyles(styled)
	var b strings.Builder

	fmt.Fprintln(&b, st.title.Render("buildq: "+r.Dir))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, st.header.Render(fmt.Sprintf("  %-8s  %5s  %s", "QUEUE", "DEPTH", "HEAD")))
	for _, q := range r.Queues {
		head := "-"
		switch {
		case q.Error != "":
			head = st.bad.Render("malformed: " + q.Error)
		case q.Depth > 0:
			head = fmt.Sprintf("%s (%s)", q.HeadStrategy, q.HeadID)
		}
		fmt.Fprintf(&b, "  %-8s  %5d  %s\n", q.Name, q.Depth, head)
	}

	fmt.Fprintln(&b)
	if n := len(r.Review.Pending); n > 0 {
		fmt.Fprintln(&b, st.warn.Render(fmt.Sprintf("Review: %d unreviewed log(s) in %s", n, r.Review.Dir)))
		for _, name := range r.Review.Pending {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	} else {
		fmt.Fprintln(&b, st.ok.Render("Review: clean"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
