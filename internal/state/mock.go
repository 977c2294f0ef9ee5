package state

import (
	"sync"

	"github.com/llehouerou/ripple/internal/dsp"
)

// Mock is a test double for Manager.
type Mock struct {
	mu         sync.Mutex
	lastPlayed *float64
	eq         *dsp.EQ
	saveErr    error
	eqSaves    int
	closed     bool
}

// NewMock creates a new mock state manager for testing.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) LastPlayedID() (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastPlayed == nil {
		return 0, false, nil
	}
	return *m.lastPlayed, true, nil
}

func (m *Mock) SaveLastPlayedID(id float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lastPlayed = &id
	return nil
}

func (m *Mock) EQ() (*dsp.EQ, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eq, nil
}

func (m *Mock) SaveEQ(eq dsp.EQ) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eq = &eq
	m.eqSaves++
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *Mock) SetLastPlayed(id float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPlayed = &id
}

func (m *Mock) SetEQ(eq dsp.EQ) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eq = &eq
}

func (m *Mock) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *Mock) EQSaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eqSaves
}

func (m *Mock) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
