// Package queue implements the durable work queues: the file-backed store,
// insertion at either end, and removal of the head unit.
package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/msageha/buildq/internal/model"
	atomicyaml "github.com/msageha/buildq/internal/yaml"
)

// ErrMalformed marks a queue file that exists but cannot be parsed as the
// expected document. It is never treated as an empty queue.
var ErrMalformed = errors.New("malformed queue file")

// Store persists one ordered queue. Index 0 is the head.
type Store[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, units []T) error
}

// FileStore keeps a queue in a single YAML file. Save replaces the whole file
// atomically; Load treats a missing or blank file as an empty queue.
type FileStore[T any] struct {
	path   string
	codec  Codec[T]
	backup bool
}

func NewFileStore[T any](path string, codec Codec[T], backup bool) *FileStore[T] {
	return &FileStore[T]{path: path, codec: codec, backup: backup}
}

func NewJobStore(path string, backup bool) *FileStore[model.Job] {
	return NewFileStore[model.Job](path, JobCodec{}, backup)
}

func NewGroupStore(path string, backup bool) *FileStore[model.Group] {
	return NewFileStore[model.Group](path, GroupCodec{}, backup)
}

func (s *FileStore[T]) Path() string {
	return s.path
}

func (s *FileStore[T]) Shape() atomicyaml.Shape {
	return s.codec.Shape()
}

func (s *FileStore[T]) Load(_ context.Context) ([]T, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue %s: %w", s.path, err)
	}
	if atomicyaml.IsBlank(data) {
		return nil, nil
	}

	units, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrMalformed, s.path, err)
	}
	return units, nil
}

func (s *FileStore[T]) Save(_ context.Context, units []T) error {
	content, err := s.codec.Encode(units)
	if err != nil {
		return fmt.Errorf("encode queue: %w", err)
	}
	opts := atomicyaml.WriteOptions{Backup: s.backup, Shape: s.codec.Shape()}
	if err := atomicyaml.AtomicWriteRaw(s.path, content, opts); err != nil {
		return fmt.Errorf("write queue %s: %w", s.path, err)
	}
	return nil
}

// MemoryStore is an in-process Store. Load returns a copy so callers cannot
// alias the stored slice.
type MemoryStore[T any] struct {
	mu    sync.Mutex
	units []T
	saves int
}

func NewMemoryStore[T any](units ...T) *MemoryStore[T] {
	return &MemoryStore[T]{units: append([]T(nil), units...)}
}

func (m *MemoryStore[T]) Load(_ context.Context) ([]T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.units...), nil
}

func (m *MemoryStore[T]) Save(_ context.Context, units []T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = append([]T(nil), units...)
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryStore[T]) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Snapshot returns the current contents without counting as a Load.
func (m *MemoryStore[T]) Snapshot() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]T(nil), m.units...)
}
