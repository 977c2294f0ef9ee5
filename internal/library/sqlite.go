package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/llehouerou/ripple/internal/db"
	"github.com/llehouerou/ripple/internal/track"
)

// SQLiteStore keeps the library in the ripple database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore wraps an opened database (see db.Open).
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]track.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, artist, format, folder, lyrics, cover_url, added_at
		FROM tracks
		ORDER BY added_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []track.Track
	for rows.Next() {
		var t track.Track
		var addedAt int64
		if err := rows.Scan(&t.ID, &t.Title, &t.Artist, &t.Format, &t.Folder, &t.Lyrics, &t.CoverURL, &addedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		t.AddedAt = time.UnixMilli(addedAt)
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id float64) (*track.Track, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, artist, format, folder, lyrics, cover_url, payload_name, payload, added_at
		FROM tracks WHERE id = ?
	`, id)

	var t track.Track
	var payloadName sql.NullString
	var payload []byte
	var addedAt int64
	err := row.Scan(&t.ID, &t.Title, &t.Artist, &t.Format, &t.Folder, &t.Lyrics, &t.CoverURL, &payloadName, &payload, &addedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %v: %w", id, track.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get track %v: %w", id, err)
	}

	t.AddedAt = time.UnixMilli(addedAt)
	if len(payload) > 0 {
		t.Payload = &track.Payload{Name: dbutil.NullStringValue(payloadName), Data: payload}
	}
	return &t, nil
}

func (s *SQLiteStore) Save(ctx context.Context, t track.Track) error {
	now := s.now().UnixMilli()
	addedAt := now
	if !t.AddedAt.IsZero() {
		addedAt = t.AddedAt.UnixMilli()
	}

	var payloadName sql.NullString
	var payload []byte
	if t.Payload != nil {
		payloadName = dbutil.NullString(t.Payload.Name)
		payload = t.Payload.Data
	}

	return dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tracks (id, title, artist, format, folder, lyrics, cover_url,
			                    payload_name, payload, added_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				artist = excluded.artist,
				format = excluded.format,
				folder = excluded.folder,
				lyrics = excluded.lyrics,
				cover_url = excluded.cover_url,
				payload_name = excluded.payload_name,
				payload = excluded.payload,
				updated_at = excluded.updated_at
		`, t.ID, t.Title, t.Artist, t.Format, t.Folder, t.Lyrics, t.CoverURL,
			payloadName, payload, addedAt, now)
		if err != nil {
			return fmt.Errorf("save track %v: %w", t.ID, err)
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, id float64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete track %v: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracks`); err != nil {
		return fmt.Errorf("clear tracks: %w", err)
	}
	return nil
}

// Verify SQLiteStore implements Store at compile time.
var _ Store = (*SQLiteStore)(nil)
