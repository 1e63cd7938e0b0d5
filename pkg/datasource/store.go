package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/treeview/pkg/debug"
	"github.com/vanderheijden86/treeview/pkg/loader"
	"github.com/vanderheijden86/treeview/pkg/model"
	"github.com/vanderheijden86/treeview/pkg/tree"
)

// ErrNoRows is returned by Modify and Remove for an unknown id.
var ErrNoRows = errors.New("node not stored")

// Store is a SQLite-backed node table. It satisfies tree.Fetcher and
// tree.Persister.
type Store struct {
	db    *sql.DB
	path  string
	key   tree.ItemKey
	group singleflight.Group
}

var (
	_ tree.Fetcher   = (*Store)(nil)
	_ tree.Persister = (*Store)(nil)
)

// Open opens or creates the database at path. Items returned by Fetch use
// the field names in key.
func Open(path string, key tree.ItemKey) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// A single connection serialises writers and keeps in-memory databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA temp_store = MEMORY",
	} {
		if _, err := db.Exec(pragma); err != nil {
			debug.Warn("datasource: %s: %v", pragma, err)
		}
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	key = tree.Options{ItemKey: key}.Normalize().ItemKey
	return &Store{db: db, path: path, key: key}, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Seed inserts or replaces items, nested children included. Siblings keep
// their input order.
func (s *Store) Seed(ctx context.Context, items []model.Item) (int, error) {
	flat := loader.Flatten(items, s.key)
	if err := loader.CheckCycles(flat, s.key); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO nodes (id, parent_id, label, icon, folder, checked, sort_order, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	order := make(map[string]int)
	n := 0
	for i, it := range flat {
		id := model.NormalizeID(it[s.key.ID])
		if id == "" {
			return 0, fmt.Errorf("item %d: %w", i, tree.ErrMissingID)
		}
		pid := model.NormalizeID(it[s.key.ParentID])
		payload, err := s.encodePayload(it)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		_, err = stmt.ExecContext(ctx, id, pid,
			fmt.Sprint(valueOr(it[s.key.Label], "")),
			fmt.Sprint(valueOr(it[s.key.Icon], "")),
			boolInt(truthy(it[s.key.Folder])),
			boolInt(truthy(it[s.key.Checked])),
			order[pid], payload)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", id, err)
		}
		order[pid]++
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	debug.Log("datasource: seeded %d nodes into %s", n, s.path)
	return n, nil
}

// Fetch returns the children of p.ID ordered by sort_order. A blank id asks
// for the top level: every row whose parent is not itself stored. Concurrent
// calls for the same id share one query.
func (s *Store) Fetch(ctx context.Context, p model.Params) ([]model.Item, error) {
	v, err, shared := s.group.Do(p.ID, func() (any, error) {
		start := time.Now()
		items, err := s.children(ctx, p.ID)
		debug.LogTiming("datasource fetch "+p.ID, time.Since(start))
		return items, err
	})
	if err != nil {
		return nil, err
	}
	items := v.([]model.Item)
	if shared {
		items = cloneItems(items)
	}
	return items, nil
}

func (s *Store) children(ctx context.Context, parentID string) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.parent_id, n.label, n.icon, n.folder, n.checked, n.payload,
			EXISTS (SELECT 1 FROM nodes c WHERE c.parent_id = n.id)
		FROM nodes n
		WHERE n.parent_id = ?1
			OR (?1 = '' AND n.parent_id NOT IN (SELECT id FROM nodes))
		ORDER BY n.sort_order, n.rowid`, parentID)
	if err != nil {
		return nil, fmt.Errorf("query children of %q: %w", parentID, err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var (
			id, pid, label, icon string
			folder, checked      bool
			payload              sql.NullString
			hasChildren          bool
		)
		if err := rows.Scan(&id, &pid, &label, &icon, &folder, &checked, &payload, &hasChildren); err != nil {
			return nil, err
		}
		it := model.Item{}
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &it); err != nil {
				return nil, fmt.Errorf("decode payload of %s: %w", id, err)
			}
		}
		it[s.key.ID] = id
		it[s.key.ParentID] = pid
		it[s.key.Label] = label
		if icon != "" {
			it[s.key.Icon] = icon
		}
		if folder || hasChildren {
			it[s.key.Folder] = true
		}
		if checked {
			it[s.key.Checked] = true
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Create appends a node after its last sibling.
func (s *Store) Create(ctx context.Context, p model.Params) error {
	payload, err := s.encodePayload(p.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, parent_id, label, sort_order, payload)
		VALUES (?1, ?2, ?3, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM nodes WHERE parent_id = ?2), ?4)`,
		p.ID, p.ParentID, p.Label, payload)
	if err != nil {
		return fmt.Errorf("create %s: %w", p.ID, err)
	}
	return nil
}

// Modify updates the label and parent of a node. A node that changes
// parent is placed after its new siblings.
func (s *Store) Modify(ctx context.Context, p model.Params) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET
			label = ?2,
			sort_order = CASE WHEN parent_id = ?3 THEN sort_order
				ELSE (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM nodes WHERE parent_id = ?3) END,
			parent_id = ?3
		WHERE id = ?1`, p.ID, p.Label, p.ParentID)
	if err != nil {
		return fmt.Errorf("modify %s: %w", p.ID, err)
	}
	return expectRow(res, p.ID)
}

// Remove deletes a node and everything below it.
func (s *Store) Remove(ctx context.Context, p model.Params) error {
	res, err := s.db.ExecContext(ctx, `
		WITH RECURSIVE sub(id) AS (
			SELECT id FROM nodes WHERE id = ?1
			UNION ALL
			SELECT n.id FROM nodes n JOIN sub ON n.parent_id = sub.id
		)
		DELETE FROM nodes WHERE id IN (SELECT id FROM sub)`, p.ID)
	if err != nil {
		return fmt.Errorf("remove %s: %w", p.ID, err)
	}
	return expectRow(res, p.ID)
}

// Dump reads every stored node, parents before children and siblings in
// order, so the result can be ingested in one AddNodes call.
func (s *Store) Dump(ctx context.Context) ([]model.Item, error) {
	var out []model.Item
	queue := []string{""}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		items, err := s.children(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			out = append(out, it)
			if truthy(it[s.key.Folder]) {
				queue = append(queue, model.NormalizeID(it[s.key.ID]))
			}
		}
	}
	return out, nil
}

// Count returns the number of stored nodes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n)
	return n, err
}

func (s *Store) encodePayload(it model.Item) (any, error) {
	if len(it) == 0 {
		return nil, nil
	}
	rest := make(model.Item, len(it))
	for k, v := range it {
		switch k {
		case s.key.ID, s.key.ParentID, s.key.Label, s.key.Icon, s.key.Children, s.key.Folder, s.key.Checked:
			continue
		}
		rest[k] = v
	}
	if len(rest) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(rest)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return string(data), nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNoRows)
	}
	return nil
}

func cloneItems(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i, it := range items {
		c := make(model.Item, len(it))
		for k, v := range it {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

func valueOr(v, def any) any {
	if v == nil {
		return def
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true" || b == "1"
	case float64:
		return b != 0
	case int:
		return b != 0
	}
	return false
}
