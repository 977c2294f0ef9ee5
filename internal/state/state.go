// Package state persists small scalar settings (last played track and EQ)
// in the ripple database. Volume and play modes are session-only.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/llehouerou/ripple/internal/dsp"
	"github.com/llehouerou/ripple/internal/logger"
)

const saveDebounce = 500 * time.Millisecond

const (
	keyLastPlayed = "last_played_id"
	keyEQ         = "eq"
)

type Manager struct {
	db        *sql.DB
	saveMu    sync.Mutex
	saveTimer *time.Timer
	pending   *dsp.EQ
}

// New wraps an opened database (see db.Open).
func New(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// Close flushes a pending EQ save. The database itself is owned by the caller.
func (m *Manager) Close() error {
	m.saveMu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}
	pending := m.pending
	m.pending = nil
	m.saveMu.Unlock()

	if pending != nil {
		return m.setJSON(keyEQ, *pending)
	}
	return nil
}

// LastPlayedID returns the id of the last activated track.
func (m *Manager) LastPlayedID() (float64, bool, error) {
	v, ok, err := m.get(keyLastPlayed)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// SaveLastPlayedID records id as the last activated track.
func (m *Manager) SaveLastPlayedID(id float64) error {
	return m.set(keyLastPlayed, strconv.FormatFloat(id, 'f', -1, 64))
}

// EQ returns the saved equalizer, or nil if none was saved.
func (m *Manager) EQ() (*dsp.EQ, error) {
	var eq dsp.EQ
	ok, err := m.getJSON(keyEQ, &eq)
	if err != nil || !ok {
		return nil, err
	}
	eq = eq.Clamped()
	return &eq, nil
}

// SaveEQ stores eq after a short quiet period; rapid slider moves collapse
// into one write.
func (m *Manager) SaveEQ(eq dsp.EQ) {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.pending = &eq

	if m.saveTimer != nil {
		m.saveTimer.Stop()
	}

	m.saveTimer = time.AfterFunc(saveDebounce, func() {
		m.saveMu.Lock()
		pending := m.pending
		m.pending = nil
		m.saveMu.Unlock()

		if pending != nil {
			if err := m.setJSON(keyEQ, *pending); err != nil {
				logger.Warn("save equalizer failed", zap.Error(err))
			}
		}
	})
}

func (m *Manager) get(key string) (string, bool, error) {
	var v string
	err := m.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (m *Manager) set(key, value string) error {
	_, err := m.db.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func (m *Manager) getJSON(key string, v any) (bool, error) {
	raw, ok, err := m.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) setJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.set(key, string(raw))
}
