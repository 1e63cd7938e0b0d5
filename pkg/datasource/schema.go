// Package datasource keeps tree nodes in a SQLite database and serves them
// to a tree as a lazy-loading Fetcher and a Persister.
package datasource

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is stored in the meta table.
const SchemaVersion = 1

func createSchema(db *sql.DB) error {
	stmts := []struct{ name, sql string }{
		{"nodes table", `
			CREATE TABLE IF NOT EXISTS nodes (
				id TEXT PRIMARY KEY,
				parent_id TEXT NOT NULL DEFAULT '',
				label TEXT NOT NULL,
				icon TEXT NOT NULL DEFAULT '',
				folder INTEGER NOT NULL DEFAULT 0,
				checked INTEGER NOT NULL DEFAULT 0,
				sort_order INTEGER NOT NULL DEFAULT 0,
				payload TEXT
			)`},
		{"parent index", `CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, sort_order)`},
		{"meta table", `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	_, err := db.Exec(`INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion))
	if err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}
