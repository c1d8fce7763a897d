package host

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/metrics"
)

// Store persists graphs and their committed positions.
type Store interface {
	// Name labels the store in metrics and logs.
	Name() string
	SaveGraph(ctx context.Context, id string, g *GraphFile) error
	LoadGraph(ctx context.Context, id string) (*GraphFile, error)
	SavePositions(ctx context.Context, id string, updates []layout.PositionUpdate) error
	ListGraphs(ctx context.Context) ([]string, error)
	Close() error
}

// PersistentGraph is a host whose commits are written through to a Store.
// The graph is loaded once; the engine reads the in-memory copy.
type PersistentGraph struct {
	*MemoryGraph
	ctx     context.Context
	store   Store
	id      string
	metrics *metrics.Registry
}

// OpenGraph loads graph id from store. ctx bounds every later commit.
func OpenGraph(ctx context.Context, store Store, id string, reg *metrics.Registry) (*PersistentGraph, error) {
	start := time.Now()
	f, err := store.LoadGraph(ctx, id)
	record(reg, store.Name(), "load", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return &PersistentGraph{
		MemoryGraph: FromFile(f),
		ctx:         ctx,
		store:       store,
		id:          id,
		metrics:     reg,
	}, nil
}

// ID returns the graph id in the store.
func (g *PersistentGraph) ID() string {
	return g.id
}

// Commit writes the positions to the store and then to memory.
func (g *PersistentGraph) Commit(updates []layout.PositionUpdate) error {
	start := time.Now()
	err := g.store.SavePositions(g.ctx, g.id, updates)
	record(g.metrics, g.store.Name(), "commit", err, time.Since(start))
	if err != nil {
		return err
	}
	return g.MemoryGraph.Commit(updates)
}

func record(reg *metrics.Registry, store, op string, err error, d time.Duration) {
	if reg == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	reg.RecordStorageOperation(store, op, status, d)
}
