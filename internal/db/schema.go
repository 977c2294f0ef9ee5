package db

import "database/sql"

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS tracks (
			id REAL PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL,
			format TEXT NOT NULL DEFAULT '',
			folder TEXT NOT NULL DEFAULT '',
			lyrics TEXT NOT NULL DEFAULT '',
			cover_url TEXT NOT NULL DEFAULT '',
			payload_name TEXT,
			payload BLOB,
			added_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_added_at ON tracks(added_at);

		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, currentSchemaVersion)
	return err
}
