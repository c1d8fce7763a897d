package main

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-frlayout/pkg/layout"
	"github.com/dd0wney/cluso-frlayout/pkg/offload"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 2).
			MarginRight(2)

	plotBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00"))

	contentStyle = lipgloss.NewStyle().MarginLeft(2).MarginTop(1)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1).MarginLeft(2)
)

const (
	plotCols = 56
	plotRows = 18
)

type watchKeys struct {
	Quit key.Binding
}

func (k watchKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Quit} }
func (k watchKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Quit}} }

var defaultWatchKeys = watchKeys{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "stop and quit"),
	),
}

// snapshotMsg carries one delivered snapshot into the program.
type snapshotMsg offload.Snapshot

// doneMsg reports that the run ended.
type doneMsg struct{ err error }

// watchModel renders the progress of one offloaded run.
type watchModel struct {
	name      string
	total     int
	nodes     int
	runID     string
	iteration int
	snapshots int
	movement  float64
	positions []layout.PositionUpdate
	started   time.Time
	elapsed   time.Duration
	finished  bool
	err       error

	progress progress.Model
	help     help.Model
	keys     watchKeys
	cancel   context.CancelFunc
}

func newWatchModel(name string, total, nodes int, cancel context.CancelFunc) watchModel {
	return watchModel{
		name:     name,
		total:    total,
		nodes:    nodes,
		started:  time.Now(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(plotCols)),
		help:     help.New(),
		keys:     defaultWatchKeys,
		cancel:   cancel,
	}
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		if w := msg.Width - 8; w > 10 && w < plotCols {
			m.progress.Width = w
		}

	case snapshotMsg:
		m.movement = meanMovement(m.positions, msg.Positions)
		m.positions = msg.Positions
		m.runID = msg.RunID
		m.iteration = msg.Iteration
		m.snapshots++
		m.elapsed = time.Since(m.started)

	case doneMsg:
		m.finished = true
		m.err = msg.err
		m.elapsed = time.Since(m.started)
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m watchModel) percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return math.Min(1, float64(m.iteration)/float64(m.total))
}

func (m watchModel) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("frlayout: " + m.name))
	s.WriteString("\n\n")

	stats := fmt.Sprintf("Run:        %s\nNodes:      %d\nIteration:  %d / %d\nSnapshots:  %d\nMovement:   %.2f\nElapsed:    %s",
		orDash(m.runID), m.nodes, m.iteration, m.total, m.snapshots, m.movement,
		m.elapsed.Round(time.Millisecond))
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(stats),
		plotBoxStyle.Render(plot(m.positions, plotCols, plotRows)),
	)
	s.WriteString(contentStyle.Render(body))
	s.WriteString("\n\n  ")
	s.WriteString(m.progress.ViewAs(m.percent()))

	if m.finished {
		s.WriteString("\n\n  ")
		if m.err != nil {
			s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
		} else {
			s.WriteString(successStyle.Render("✓ layout finished"))
		}
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	s.WriteString("\n")
	return s.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// meanMovement is the average distance nodes moved between two snapshots.
// Nodes absent from prev are ignored.
func meanMovement(prev, next []layout.PositionUpdate) float64 {
	if len(prev) == 0 {
		return 0
	}
	before := make(map[string]layout.Position, len(prev))
	for _, u := range prev {
		before[u.ID] = u.Position
	}
	var sum float64
	var n int
	for _, u := range next {
		if p, ok := before[u.ID]; ok {
			sum += p.Distance(u.Position)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// plot scatters the positions onto a cols x rows character grid scaled to
// their bounding box.
func plot(positions []layout.PositionUpdate, cols, rows int) string {
	grid := make([][]rune, rows)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}
	if len(positions) > 0 {
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, u := range positions {
			minX, maxX = math.Min(minX, u.Position.X), math.Max(maxX, u.Position.X)
			minY, maxY = math.Min(minY, u.Position.Y), math.Max(maxY, u.Position.Y)
		}
		for _, u := range positions {
			c := scale(u.Position.X, minX, maxX, cols)
			r := scale(u.Position.Y, minY, maxY, rows)
			grid[r][c] = '•'
		}
	}
	lines := make([]string, rows)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

func scale(v, lo, hi float64, cells int) int {
	if hi-lo < 1e-9 {
		return cells / 2
	}
	i := int((v - lo) / (hi - lo) * float64(cells-1))
	if i < 0 {
		return 0
	}
	if i >= cells {
		return cells - 1
	}
	return i
}
