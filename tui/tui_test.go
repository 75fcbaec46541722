package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/versegraph/engine"
	"github.com/TFMV/versegraph/interaction"
	"github.com/TFMV/versegraph/models"
	"github.com/TFMV/versegraph/physics"
	"github.com/TFMV/versegraph/render"
	"github.com/TFMV/versegraph/scheduler"
)

func newTestModel(t *testing.T) (*Model, *engine.Engine) {
	t.Helper()
	sched := scheduler.NewManual()
	eng := engine.New(sched, engine.Options{
		Viewport: models.Viewport{Width: 400, Height: 400},
		Force:    physics.DefaultForceConfig(),
		Seed:     1,
	})
	t.Cleanup(eng.Dispose)

	eng.SetGraph([]models.Node{
		{ID: "jn316", Type: models.NodeVerse, Label: "John 3:16"},
		{ID: "love", Type: models.NodeTag, Label: "#love"},
	}, []models.Edge{
		{ID: "e1", Source: "jn316", Target: "love", Type: models.ConnTagged},
	})

	ctrl := interaction.NewController(eng, interaction.DefaultOptions(), nil)
	m := New(eng, sched, ctrl, "study.json")
	m.Update(tea.WindowSizeMsg{Width: 202, Height: 104})
	return m, eng
}

func settle(m *Model, eng *engine.Engine) {
	for i := 0; i < 1000 && !eng.Halted(); i++ {
		m.Update(tickMsg{})
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTick_AdvancesLayout(t *testing.T) {
	m, eng := newTestModel(t)
	assert.False(t, eng.Halted())

	_, cmd := m.Update(tickMsg{})
	assert.NotNil(t, cmd, "ticks keep coming")

	settle(m, eng)
	assert.True(t, eng.Halted())
	assert.True(t, eng.Latest().Final)
}

func TestPause_StopsTicks(t *testing.T) {
	m, eng := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	require.True(t, m.paused)

	m.Update(tickMsg{})
	m.Update(tickMsg{})
	assert.Zero(t, eng.Latest().Iteration)
	assert.Contains(t, m.View(), "paused")
}

func TestSpeed_Bounds(t *testing.T) {
	m, _ := newTestModel(t)
	for i := 0; i < 10; i++ {
		m.Update(key("+"))
	}
	assert.Equal(t, maxSpeed, m.speed)
	for i := 0; i < 10; i++ {
		m.Update(key("-"))
	}
	assert.Equal(t, 1, m.speed)
}

func TestReheat_RestartsHaltedRun(t *testing.T) {
	m, eng := newTestModel(t)
	settle(m, eng)
	require.True(t, eng.Halted())

	m.Update(key("r"))
	assert.False(t, eng.Halted())
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestView_DrawsNodes(t *testing.T) {
	m, eng := newTestModel(t)
	settle(m, eng)

	view := m.View()
	assert.Contains(t, view, "versegraph")
	assert.Contains(t, view, "study.json")
	assert.Contains(t, view, "settled")
	assert.Contains(t, view, string(render.Symbol(models.NodeVerse)))
	assert.Contains(t, view, string(render.Symbol(models.NodeTag)))
	assert.Equal(t, 104, len(strings.Split(view, "\n")))
}

func TestMouse_GrabAndSelect(t *testing.T) {
	m, eng := newTestModel(t)
	settle(m, eng)

	cols, rows := m.gridSize()
	col, row := render.Cell(eng.Viewport(), eng.Positions()["love"], cols, rows)
	x, y := col+gridLeft, row+gridTop

	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	held, ok := m.controller.Held()
	require.True(t, ok)
	assert.Equal(t, "love", held)

	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.Equal(t, "love", m.selected)
	assert.Contains(t, m.View(), "selected: #love (1 links)")
}

func TestMouse_DragMovesNode(t *testing.T) {
	m, eng := newTestModel(t)
	settle(m, eng)

	cols, rows := m.gridSize()
	col, row := render.Cell(eng.Viewport(), eng.Positions()["jn316"], cols, rows)
	m.Update(tea.MouseMsg{X: col + gridLeft, Y: row + gridTop, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	m.Update(tea.MouseMsg{X: gridLeft, Y: gridTop, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	sx, sy := m.toScreen(gridLeft, gridTop)
	assert.Equal(t, models.Position{X: sx, Y: sy}, eng.Positions()["jn316"])
}
