package library

import (
	"context"
	"fmt"
	"sync"

	"github.com/llehouerou/ripple/internal/track"
)

// Mock is an in-memory Store for tests.
type Mock struct {
	mu      sync.Mutex
	order   []float64
	records map[float64]track.Track

	saveErr   error
	deleteErr error
	getErr    error
	saves     int
	deletes   int
}

// NewMock creates an empty mock store.
func NewMock(tracks ...track.Track) *Mock {
	m := &Mock{records: make(map[float64]track.Track)}
	for _, t := range tracks {
		m.put(t)
	}
	return m
}

func (m *Mock) put(t track.Track) {
	if _, ok := m.records[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.records[t.ID] = t
}

func (m *Mock) GetAll(_ context.Context) ([]track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]track.Track, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id].WithoutPayload())
	}
	return out, nil
}

func (m *Mock) Get(_ context.Context, id float64) (*track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	t, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("track %v: %w", id, track.ErrNotFound)
	}
	return &t, nil
}

func (m *Mock) Save(_ context.Context, t track.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.put(t)
	return nil
}

func (m *Mock) Delete(_ context.Context, id float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.records[id]; !ok {
		return nil
	}
	delete(m.records, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Mock) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[float64]track.Track)
	m.order = nil
	return nil
}

// Test helpers

func (m *Mock) SetSaveError(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

func (m *Mock) SetDeleteError(err error) {
	m.mu.Lock()
	m.deleteErr = err
	m.mu.Unlock()
}

func (m *Mock) SetGetError(err error) {
	m.mu.Lock()
	m.getErr = err
	m.mu.Unlock()
}

func (m *Mock) SaveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Mock) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deletes
}

// Has reports whether id is stored.
func (m *Mock) Has(id float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[id]
	return ok
}

// Verify Mock implements Store at compile time.
var _ Store = (*Mock)(nil)
