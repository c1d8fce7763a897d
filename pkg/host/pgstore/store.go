// Package pgstore persists layout graphs in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
)

// Store is a host.Store backed by a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// ParseConfig applies the pool defaults to a database URL.
func ParseConfig(databaseURL string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute
	return config, nil
}

// New connects, verifies the connection and creates the tables.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS layout_graphs (
		id TEXT PRIMARY KEY,
		viewport_width DOUBLE PRECISION,
		viewport_height DOUBLE PRECISION,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS layout_nodes (
		graph_id TEXT NOT NULL REFERENCES layout_graphs(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
		position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
		fixed BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (graph_id, id)
	);

	CREATE TABLE IF NOT EXISTS layout_edges (
		graph_id TEXT NOT NULL REFERENCES layout_graphs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		PRIMARY KEY (graph_id, seq)
	);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Name implements host.Store
func (s *Store) Name() string { return "postgres" }

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// SaveGraph replaces graph id with g.
func (s *Store) SaveGraph(ctx context.Context, id string, g *host.GraphFile) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM layout_graphs WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete graph: %w", err)
		}

		var w, h *float64
		if g.Viewport != nil {
			w, h = &g.Viewport.Width, &g.Viewport.Height
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO layout_graphs (id, viewport_width, viewport_height) VALUES ($1, $2, $3)`,
			id, w, h); err != nil {
			return fmt.Errorf("failed to insert graph: %w", err)
		}

		nodes := make([][]any, len(g.Nodes))
		for i, n := range g.Nodes {
			nodes[i] = []any{id, n.ID, i, n.Position.X, n.Position.Y, n.Fixed}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"layout_nodes"},
			[]string{"graph_id", "id", "seq", "position_x", "position_y", "fixed"},
			pgx.CopyFromRows(nodes)); err != nil {
			return fmt.Errorf("failed to copy nodes: %w", err)
		}

		edges := make([][]any, len(g.Edges))
		for i, e := range g.Edges {
			edges[i] = []any{id, i, e.ID, e.Source, e.Target}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"layout_edges"},
			[]string{"graph_id", "seq", "id", "source", "target"},
			pgx.CopyFromRows(edges)); err != nil {
			return fmt.Errorf("failed to copy edges: %w", err)
		}
		return nil
	})
}

// LoadGraph returns graph id with nodes and edges in their saved order.
func (s *Store) LoadGraph(ctx context.Context, id string) (*host.GraphFile, error) {
	var w, h *float64
	err := s.pool.QueryRow(ctx,
		`SELECT viewport_width, viewport_height FROM layout_graphs WHERE id = $1`, id).Scan(&w, &h)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", host.ErrGraphNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}

	g := &host.GraphFile{}
	if w != nil && h != nil {
		g.Viewport = &host.ViewportSize{Width: *w, Height: *h}
	}

	rows, _ := s.pool.Query(ctx,
		`SELECT id, position_x, position_y, fixed FROM layout_nodes WHERE graph_id = $1 ORDER BY seq`, id)
	g.Nodes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (layout.NodeRecord, error) {
		var n layout.NodeRecord
		err := row.Scan(&n.ID, &n.Position.X, &n.Position.Y, &n.Fixed)
		return n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	rows, _ = s.pool.Query(ctx,
		`SELECT id, source, target FROM layout_edges WHERE graph_id = $1 ORDER BY seq`, id)
	g.Edges, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (layout.EdgeRecord, error) {
		var e layout.EdgeRecord
		err := row.Scan(&e.ID, &e.Source, &e.Target)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	return g, nil
}

// SavePositions sends every update in one batch inside a transaction.
// Unknown ids abort the whole batch.
func (s *Store) SavePositions(ctx context.Context, id string, updates []layout.PositionUpdate) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(
				`UPDATE layout_nodes SET position_x = $1, position_y = $2 WHERE graph_id = $3 AND id = $4`,
				u.Position.X, u.Position.Y, id, u.ID)
		}
		batch.Queue(`UPDATE layout_graphs SET updated_at = now() WHERE id = $1`, id)

		results := tx.SendBatch(ctx, batch)
		for _, u := range updates {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return fmt.Errorf("failed to update node %s: %w", u.ID, err)
			}
			if tag.RowsAffected() == 0 {
				results.Close()
				return fmt.Errorf("%w: %s", host.ErrUnknownNode, u.ID)
			}
		}
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
		return results.Close()
	})
}

// ListGraphs returns every stored graph id in order.
func (s *Store) ListGraphs(ctx context.Context) ([]string, error) {
	rows, _ := s.pool.Query(ctx, `SELECT id FROM layout_graphs ORDER BY id`)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	return ids, nil
}

var _ host.Store = (*Store)(nil)
