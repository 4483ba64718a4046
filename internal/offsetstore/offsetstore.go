// Package offsetstore persists the viewer's per-pack local offset
// adjustment. The value is client-owned: it never reaches the server, lives
// in the participant's own persistence scope, and is independent for every
// viewer and pack.
package offsetstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// KV is the per-origin key-value persistence capability the host runtime
// provides to a participant.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Store reads and writes local offset adjustments keyed by sync pack id.
type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func offsetKey(packID string) string {
	return "cleanstream_offset_" + packID
}

// Load returns the viewer's adjustment for the pack. A missing or garbled
// value defaults to 0, the first-encounter state.
func (s *Store) Load(ctx context.Context, packID string) (int64, error) {
	raw, ok, err := s.kv.Get(ctx, offsetKey(packID))
	if err != nil {
		return 0, fmt.Errorf("load local offset: %w", err)
	}
	if !ok {
		return 0, nil
	}
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, nil
	}
	return offset, nil
}

// Save stores the adjustment for the pack.
func (s *Store) Save(ctx context.Context, packID string, offsetMs int64) error {
	if err := s.kv.Set(ctx, offsetKey(packID), strconv.FormatInt(offsetMs, 10)); err != nil {
		return fmt.Errorf("save local offset: %w", err)
	}
	return nil
}

// Reset clears the viewer's adjustment back to 0.
func (s *Store) Reset(ctx context.Context, packID string) error {
	return s.Save(ctx, packID, 0)
}

// MemoryKV is an in-process KV used by tests and by participants whose host
// provides no durable scope.
type MemoryKV struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
