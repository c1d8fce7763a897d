// Package sqlitestore persists layout graphs in SQLite using the pure-Go
// modernc driver.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

const schema = `
CREATE TABLE IF NOT EXISTS graphs (
	id TEXT PRIMARY KEY,
	viewport_width REAL,
	viewport_height REAL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS nodes (
	graph_id TEXT NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	position_x REAL NOT NULL DEFAULT 0,
	position_y REAL NOT NULL DEFAULT 0,
	fixed INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS edges (
	graph_id TEXT NOT NULL REFERENCES graphs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	id TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	PRIMARY KEY (graph_id, seq)
);
`

// Store is a host.Store backed by a SQLite database file.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path. ":memory:" gives a private
// in-memory database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Name implements host.Store
func (s *Store) Name() string { return "sqlite" }

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close implements host.Store
func (s *Store) Close() error { return s.db.Close() }

// SaveGraph replaces graph id with g.
func (s *Store) SaveGraph(ctx context.Context, id string, g *host.GraphFile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id); err != nil {
		return err
	}
	var w, h sql.NullFloat64
	if g.Viewport != nil {
		w = sql.NullFloat64{Float64: g.Viewport.Width, Valid: true}
		h = sql.NullFloat64{Float64: g.Viewport.Height, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO graphs (id, viewport_width, viewport_height) VALUES (?, ?, ?)`, id, w, h); err != nil {
		return fmt.Errorf("insert graph: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (graph_id, id, seq, position_x, position_y, fixed) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()
	for i, n := range g.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, id, n.ID, i, n.Position.X, n.Position.Y, n.Fixed); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (graph_id, seq, id, source, target) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for i, e := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx, id, i, e.ID, e.Source, e.Target); err != nil {
			return fmt.Errorf("insert edge %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadGraph returns graph id with nodes and edges in their saved order.
func (s *Store) LoadGraph(ctx context.Context, id string) (*host.GraphFile, error) {
	var w, h sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT viewport_width, viewport_height FROM graphs WHERE id = ?`, id).Scan(&w, &h)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", host.ErrGraphNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	g := &host.GraphFile{}
	if w.Valid && h.Valid {
		g.Viewport = &host.ViewportSize{Width: w.Float64, Height: h.Float64}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position_x, position_y, fixed FROM nodes WHERE graph_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var n layout.NodeRecord
		if err := rows.Scan(&n.ID, &n.Position.X, &n.Position.Y, &n.Fixed); err != nil {
			rows.Close()
			return nil, err
		}
		g.Nodes = append(g.Nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, source, target FROM edges WHERE graph_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e layout.EdgeRecord
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, err
		}
		g.Edges = append(g.Edges, e)
	}
	return g, rows.Err()
}

// SavePositions updates node positions in one transaction. Unknown ids
// abort the whole batch.
func (s *Store) SavePositions(ctx context.Context, id string, updates []layout.PositionUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE nodes SET position_x = ?, position_y = ? WHERE graph_id = ? AND id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.Position.X, u.Position.Y, id, u.ID)
		if err != nil {
			return fmt.Errorf("update node %s: %w", u.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: %s", host.ErrUnknownNode, u.ID)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE graphs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListGraphs returns every stored graph id in order.
func (s *Store) ListGraphs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM graphs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ host.Store = (*Store)(nil)
