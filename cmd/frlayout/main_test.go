package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-frlayout/pkg/auth"
	"github.com/dd0wney/cluso-frlayout/pkg/config"
	"github.com/dd0wney/cluso-frlayout/pkg/host"
	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/logging"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const triangle = `{
  "nodes": [
    {"id": "a", "position": {"x": 0, "y": 0}, "fixed": true},
    {"id": "b", "position": {"x": 10, "y": 0}},
    {"id": "c", "position": {"x": 0, "y": 10}}
  ],
  "edges": [
    {"source": "a", "target": "b"},
    {"source": "b", "target": "c"}
  ]
}`

func TestParseViewport(t *testing.T) {
	tests := []struct {
		in      string
		want    *host.ViewportSize
		wantErr bool
	}{
		{"800x600", &host.ViewportSize{Width: 800, Height: 600}, false},
		{"1024X768", &host.ViewportSize{Width: 1024, Height: 768}, false},
		{" 20 x 10 ", &host.ViewportSize{Width: 20, Height: 10}, false},
		{"800", nil, true},
		{"0x600", nil, true},
		{"axb", nil, true},
		{"-5x5", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseViewport(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errViewport)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "frlayout version "+version+"\n", out)
}

func TestRunCmd_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "graph.json", triangle)
	outPath := filepath.Join(dir, "out.yaml")

	out, err := execute(t, "run", in, "-o", outPath, "--iterations", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "3 nodes, 25 iterations")
	assert.Contains(t, out, outPath)

	g, err := host.ReadFile(outPath)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)

	moved := false
	for _, n := range g.Nodes {
		if n.ID == "a" {
			assert.Equal(t, layout.Position{}, n.Position, "fixed node moved")
		} else if n.Position != (layout.Position{X: 10}) && n.Position != (layout.Position{Y: 10}) {
			moved = true
		}
	}
	assert.True(t, moved, "free nodes never moved")
}

func TestRunCmd_Seeded(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "stacked.yaml", "nodes:\n  - id: a\n  - id: b\n  - id: c\nedges:\n  - {source: a, target: b}\n")

	_, err := execute(t, "run", in, "--seed", "hierarchical", "--iterations", "5")
	require.NoError(t, err)

	g, err := host.ReadFile(in)
	require.NoError(t, err)
	seen := map[layout.Position]bool{}
	for _, n := range g.Nodes {
		seen[n.Position] = true
	}
	assert.Len(t, seen, 3)
}

func TestRunCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "graph.json", triangle)

	_, err := execute(t, "run", in, "--viewport", "wide")
	assert.ErrorIs(t, err, errViewport)

	_, err = execute(t, "run", in, "--speed", "3")
	assert.ErrorIs(t, err, layout.ErrInvalidConfig)

	_, err = execute(t, "run", in, "--seed", "spiral")
	assert.ErrorIs(t, err, host.ErrUnknownSeed)

	_, err = execute(t, "run", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	_, err = execute(t, "run")
	assert.Error(t, err)
}

func TestStoreCmds(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "graph.json", triangle)
	cfg := writeFile(t, dir, "frlayout.yaml",
		"store:\n  driver: sqlite\n  dsn: "+filepath.Join(dir, "graphs.db")+"\n")

	out, err := execute(t, "store", "import", "tri", in, "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, "imported tri (3 nodes, 2 edges)\n", out)

	out, err = execute(t, "store", "list", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"tri"}, strings.Fields(out))

	exported := filepath.Join(dir, "exported.json")
	_, err = execute(t, "store", "export", "tri", exported, "-c", cfg)
	require.NoError(t, err)
	g, err := host.ReadFile(exported)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)

	_, err = execute(t, "store", "export", "nope", exported, "-c", cfg)
	assert.ErrorIs(t, err, host.ErrGraphNotFound)
}

func TestStoreCmds_NoStore(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "frlayout.yaml", "log:\n  level: error\n")
	_, err := execute(t, "store", "list", "-c", cfg)
	assert.ErrorIs(t, err, errNoStore)
}

func TestTokenCmd(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "frlayout.yaml", "auth:\n  secret: "+testSecret+"\n  issuer: tests\n")

	out, err := execute(t, "token", "-c", cfg, "--subject", "ci", "--role", auth.RoleViewer)
	require.NoError(t, err)

	mgr, err := auth.NewJWTManager(testSecret, "tests", 0)
	require.NoError(t, err)
	claims, err := mgr.ValidateToken(context.Background(), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Subject)
	assert.Equal(t, auth.RoleViewer, claims.Role)

	_, err = execute(t, "token", "-c", cfg, "--role", "root")
	assert.ErrorIs(t, err, auth.ErrInvalidRole)

	empty := writeFile(t, dir, "empty.yaml", "")
	_, err = execute(t, "token", "-c", empty)
	assert.Error(t, err)
}

func TestTransportAddr(t *testing.T) {
	cmd := newPublishCmd()
	_, err := transportAddr(cmd, "")
	assert.Error(t, err)

	addr, err := transportAddr(cmd, "tcp://127.0.0.1:7440")
	require.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:7440", addr)

	require.NoError(t, cmd.Flags().Set("addr", "inproc://frames"))
	addr, err = transportAddr(cmd, "tcp://127.0.0.1:7440")
	require.NoError(t, err)
	assert.Equal(t, "inproc://frames", addr)
}

func TestWatchModel(t *testing.T) {
	cancelled := false
	m := newWatchModel("graph.json", 100, 2, func() { cancelled = true })
	assert.Contains(t, m.View(), "graph.json")
	assert.Zero(t, m.percent())

	first := offload.Snapshot{RunID: "r1", Seq: 1, Iteration: 50, Positions: []layout.PositionUpdate{
		{ID: "a", Position: layout.Position{X: 0, Y: 0}},
		{ID: "b", Position: layout.Position{X: 10, Y: 0}},
	}}
	next, _ := m.Update(snapshotMsg(first))
	m = next.(watchModel)
	assert.Equal(t, 0.5, m.percent())
	assert.Zero(t, m.movement)

	second := offload.Snapshot{RunID: "r1", Seq: 2, Iteration: 100, Final: true, Positions: []layout.PositionUpdate{
		{ID: "a", Position: layout.Position{X: 0, Y: 4}},
		{ID: "b", Position: layout.Position{X: 10, Y: 0}},
	}}
	next, _ = m.Update(snapshotMsg(second))
	m = next.(watchModel)
	assert.Equal(t, 1.0, m.percent())
	assert.InDelta(t, 2.0, m.movement, 1e-9)
	assert.Equal(t, 2, m.snapshots)
	assert.Contains(t, m.View(), "r1")

	next, cmd := m.Update(doneMsg{})
	m = next.(watchModel)
	assert.True(t, m.finished)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "layout finished")
	assert.False(t, cancelled)
}

func TestPlot(t *testing.T) {
	empty := plot(nil, 4, 2)
	assert.Equal(t, "    \n    ", empty)

	grid := plot([]layout.PositionUpdate{
		{ID: "a", Position: layout.Position{X: 0, Y: 0}},
		{ID: "b", Position: layout.Position{X: 9, Y: 9}},
	}, 4, 2)
	rows := strings.Split(grid, "\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "•   ", rows[0])
	assert.Equal(t, "   •", rows[1])

	// a single point lands in the middle
	single := strings.Split(plot([]layout.PositionUpdate{{ID: "a"}}, 4, 2), "\n")
	assert.Equal(t, "  • ", single[1])
}

func TestCertCmds(t *testing.T) {
	dir := t.TempDir()
	crt := filepath.Join(dir, "tls", "server.crt")
	key := filepath.Join(dir, "tls", "server.key")

	out, err := execute(t, "cert", "generate", "--cert", crt, "--key", key, "--host", "layout.internal,10.1.2.3", "--valid-for", "48h")
	require.NoError(t, err)
	assert.Contains(t, out, crt)

	out, err = execute(t, "cert", "info", crt)
	require.NoError(t, err)
	assert.Contains(t, out, "dns:        layout.internal")
	assert.Contains(t, out, "ip:         10.1.2.3")
	assert.Contains(t, out, "status:     valid")

	_, err = execute(t, "cert", "info", filepath.Join(dir, "missing.crt"))
	assert.Error(t, err)
}

func TestBuildServer(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Store = config.StoreConfig{Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "graphs.db")}

	ctx, cancel := context.WithCancel(context.Background())
	gs, err := buildServer(ctx, cfg, logging.NewNopLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- gs.Run(ctx) }()
	require.NotNil(t, gs.Addr())
	base := fmt.Sprintf("http://%s", gs.Addr())

	for _, path := range []string{"/health", "/ready", "/live", "/version"} {
		resp, err := http.Get(base + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(base + "/graphs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	assert.NoError(t, <-done)
}
