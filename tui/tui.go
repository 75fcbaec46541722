// Package tui shows a live layout in the terminal. Display frames drive the
// simulation: every frame drains a few pending ticks from a manual scheduler,
// then the latest snapshot is drawn as a character grid. The mouse grabs and
// drags nodes through the interaction controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TFMV/versegraph/engine"
	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/render"
	"github.com/TFMV/versegraph/scheduler"
)

// frameInterval paces redraws at roughly 60 fps
const frameInterval = 16 * time.Millisecond

// screen layout: one header line and a top border above the grid, a bottom
// border and one footer line below it
const (
	gridLeft   = 1
	gridTop    = 2
	chromeCols = 2
	chromeRows = 4
	minCols    = 10
	minRows    = 5
	maxSpeed   = 16
)

var (
	title   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	blue    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

var symbolStyles = map[rune]lipgloss.Style{
	render.Symbol(models.NodeVerse): blue,
	render.Symbol(models.NodeGroup): magenta,
	render.Symbol(models.NodeNote):  yellow,
	render.Symbol(models.NodeTag):   green,
	'+':                             red,
	'.':                             dimmer,
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model for the layout view
type Model struct {
	engine     *engine.Engine
	sched      *scheduler.Manual
	controller *interaction.Controller
	name       string

	width    int
	height   int
	paused   bool
	speed    int
	selected string
}

// New creates a view over eng. sched must be the scheduler eng was built with.
func New(eng *engine.Engine, sched *scheduler.Manual, controller *interaction.Controller, name string) *Model {
	m := &Model{
		engine:     eng,
		sched:      sched,
		controller: controller,
		name:       name,
		width:      80,
		height:     24,
		speed:      1,
	}
	controller.OnSelect(func(ev interaction.SelectEvent) {
		m.selected = ev.NodeID
	})
	return m
}

// Run starts the program and blocks until the user quits or ctx is done
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused {
			m.sched.Drain(m.speed)
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "p":
		m.paused = !m.paused
	case "r":
		m.engine.Reheat()
	case "+", "=":
		m.speed = min(m.speed*2, maxSpeed)
	case "-", "_":
		m.speed = max(m.speed/2, 1)
	case "0":
		m.controller.SetTransform(interaction.Identity)
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	sx, sy := m.toScreen(msg.X, msg.Y)
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.controller.PointerDown(sx, sy)
	case msg.Action == tea.MouseActionMotion:
		m.controller.PointerMove(sx, sy)
	case msg.Action == tea.MouseActionRelease:
		m.controller.PointerUp(sx, sy)
	case msg.Button == tea.MouseButtonWheelUp:
		m.controller.Zoom(1.25, sx, sy)
	case msg.Button == tea.MouseButtonWheelDown:
		m.controller.Zoom(0.8, sx, sy)
	}
}

// gridSize returns the drawable grid for the current terminal
func (m *Model) gridSize() (cols, rows int) {
	return max(m.width-chromeCols, minCols), max(m.height-chromeRows, minRows)
}

// toScreen maps a terminal cell to view coordinates in layout units
func (m *Model) toScreen(x, y int) (float64, float64) {
	cols, rows := m.gridSize()
	vp := m.engine.Viewport()
	col := min(max(x-gridLeft, 0), cols-1)
	row := min(max(y-gridTop, 0), rows-1)
	return float64(col) / float64(cols-1) * vp.Width, float64(row) / float64(rows-1) * vp.Height
}

// scene builds the frame with the view transform applied to every position
func (m *Model) scene() render.Scene {
	snap := m.engine.Latest()
	tr := m.controller.Transform()
	positions := make(map[string]models.Position, len(snap.Positions))
	for id, p := range snap.Positions {
		x, y := tr.ToScreen(p)
		positions[id] = models.Position{X: x, Y: y}
	}
	snap.Positions = positions

	scene := render.NewScene(m.engine.Viewport(), m.engine.Nodes(), m.engine.Edges(), snap)
	scene.Held, _ = m.controller.Held()
	scene.Selected = m.selected
	return scene
}

func (m *Model) View() string {
	cols, rows := m.gridSize()
	scene := m.scene()

	var sb strings.Builder

	state := green.Render("settled")
	if !m.engine.Halted() {
		state = yellow.Render(fmt.Sprintf("alpha %.3f", m.engine.Alpha()))
	}
	if m.paused {
		state = red.Render("paused")
	}
	fmt.Fprintf(&sb, "%s  %s  %s  %s\n",
		title.Render("versegraph"), m.name,
		dim.Render(fmt.Sprintf("%d nodes · tick %d · x%d", len(scene.Nodes), scene.Iteration, m.speed)),
		state)

	border := dim.Render("+" + strings.Repeat("-", cols) + "+")
	sb.WriteString(border + "\n")
	for _, row := range render.Grid(scene, cols, rows) {
		sb.WriteString(dim.Render("|"))
		for _, r := range row {
			if style, ok := symbolStyles[r]; ok {
				sb.WriteString(style.Render(string(r)))
			} else {
				sb.WriteRune(r)
			}
		}
		sb.WriteString(dim.Render("|") + "\n")
	}
	sb.WriteString(border + "\n")

	footer := "space pause · r reheat · +/- speed · 0 reset view · q quit"
	if label := m.selectedLabel(scene); label != "" {
		footer = "selected: " + label + " · " + footer
	}
	sb.WriteString(dim.Render(footer))
	return sb.String()
}

func (m *Model) selectedLabel(scene render.Scene) string {
	if m.selected == "" {
		return ""
	}
	g := models.Graph{Nodes: scene.Nodes, Edges: scene.Edges}
	n, err := g.FindNodeByID(m.selected)
	if err != nil {
		return ""
	}
	label := n.Label
	if label == "" {
		label = n.ID
	}
	return fmt.Sprintf("%s (%d links)", label, len(g.Links(n.ID)))
}
