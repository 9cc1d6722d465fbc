// Package review finds step logs that have not been audited yet.
package review

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scanner classifies log directory entries purely by file name. It never
// creates, moves, or modifies logs.
type Scanner struct {
	Dir             string
	PendingPattern  string
	ReviewedPattern string
}

// Validate rejects malformed glob patterns up front, so a typo in the config
// cannot silently disable the review gate.
func (s Scanner) Validate() error {
	if s.PendingPattern == "" {
		return fmt.Errorf("review pending pattern is empty")
	}
	if _, err := filepath.Match(s.PendingPattern, ""); err != nil {
		return fmt.Errorf("invalid pending pattern %q: %w", s.PendingPattern, err)
	}
	if s.ReviewedPattern != "" {
		if _, err := filepath.Match(s.ReviewedPattern, ""); err != nil {
			return fmt.Errorf("invalid reviewed pattern %q: %w", s.ReviewedPattern, err)
		}
	}
	return nil
}

// IsPending reports whether name is awaiting review.
func (s Scanner) IsPending(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if ok, _ := filepath.Match(s.PendingPattern, name); !ok {
		return false
	}
	if s.ReviewedPattern != "" {
		if reviewed, _ := filepath.Match(s.ReviewedPattern, name); reviewed {
			return false
		}
	}
	return true
}

// Pending lists unreviewed log names, sorted. A missing directory has none.
func (s Scanner) Pending() ([]string, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log dir %s: %w", s.Dir, err)
	}

	var pending []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if s.IsPending(e.Name()) {
			pending = append(pending, e.Name())
		}
	}
	sort.Strings(pending)
	return pending, nil
}
