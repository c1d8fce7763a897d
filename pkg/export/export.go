// Package export writes finished layouts to durable destinations: local
// files and S3-compatible object storage.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
)

// ErrNoRunID is returned when a document has nothing to name it by.
var ErrNoRunID = errors.New("export: document has no run id")

// Document is one exported layout.
type Document struct {
	RunID     string                  `json:"runId" yaml:"run_id"`
	Iteration int                     `json:"iteration,omitempty" yaml:"iteration,omitempty"`
	Final     bool                    `json:"final" yaml:"final"`
	CreatedAt time.Time               `json:"createdAt" yaml:"created_at"`
	Positions []layout.PositionUpdate `json:"positions" yaml:"positions"`
}

// FromHost captures the committed positions of every node in h.
func FromHost(runID string, h layout.Host) Document {
	nodes := h.Nodes()
	pos := make([]layout.PositionUpdate, len(nodes))
	for i, n := range nodes {
		pos[i] = layout.PositionUpdate{ID: n.ID, Position: n.Position}
	}
	return Document{RunID: runID, Final: true, CreatedAt: time.Now().UTC(), Positions: pos}
}

// FromSnapshot converts an offloaded snapshot.
func FromSnapshot(s offload.Snapshot) Document {
	return Document{
		RunID:     s.RunID,
		Iteration: s.Iteration,
		Final:     s.Final,
		CreatedAt: time.Now().UTC(),
		Positions: s.Positions,
	}
}

// Format is the document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Marshal encodes d. The empty format means JSON.
func Marshal(d Document, f Format) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML:
		return yaml.Marshal(d)
	default:
		return nil, fmt.Errorf("export: unknown format %q", f)
	}
}

// Key names the object a document is stored under.
func Key(prefix, runID string, f Format) string {
	if f == "" {
		f = FormatJSON
	}
	name := runID + "." + string(f)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Writer stores documents.
type Writer interface {
	Write(ctx context.Context, d Document) error
}

// StopExporter writes the host's committed layout when a run stops.
// Register it as an engine listener; it runs after the final commit.
type StopExporter struct {
	ctx    context.Context
	writer Writer
	host   layout.Host
	logger logging.Logger
	errs   chan error
}

// NewStopExporter builds an exporter for runs over host.
func NewStopExporter(ctx context.Context, w Writer, h layout.Host, logger logging.Logger) *StopExporter {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StopExporter{
		ctx:    ctx,
		writer: w,
		host:   h,
		logger: logger.With(logging.Component("export")),
		errs:   make(chan error, 1),
	}
}

// HandleEvent implements layout.Listener
func (x *StopExporter) HandleEvent(ev layout.Event) {
	if ev.Type != layout.EventStop || ev.RunID == "" {
		return
	}
	doc := FromHost(ev.RunID, x.host)
	doc.Iteration = ev.Iterations
	err := x.writer.Write(x.ctx, doc)
	if err != nil {
		x.logger.Error("layout export failed", logging.RunID(ev.RunID), logging.Error(err))
	} else {
		x.logger.Info("layout exported", logging.RunID(ev.RunID), logging.Nodes(len(doc.Positions)))
	}
	select {
	case x.errs <- err:
	default:
	}
}

// Err returns the result of the most recent export not yet read, or nil.
func (x *StopExporter) Err() error {
	select {
	case err := <-x.errs:
		return err
	default:
		return nil
	}
}

// SnapshotSink adapts a Writer to offload.Sink. By default only final
// snapshots are written.
type SnapshotSink struct {
	Writer Writer
	All    bool
}

// Deliver implements offload.Sink
func (s SnapshotSink) Deliver(ctx context.Context, snap offload.Snapshot) error {
	if !s.All && !snap.Final {
		return nil
	}
	return s.Writer.Write(ctx, FromSnapshot(snap))
}

var (
	_ layout.Listener = (*StopExporter)(nil)
	_ offload.Sink    = SnapshotSink{}
)
