package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JimmyLeeSnow/xyflow/pkg/flow"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/panzoom"
	"github.com/JimmyLeeSnow/xyflow/pkg/flow/store"
)

// Editor styles
var (
	editorTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	editorCursorStyle = lipgloss.NewStyle().Foreground(colorTeal)
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listConnectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// nudgeStep is how far arrow keys move a node, in flow units.
const nudgeStep = 10.0

// editorMode is the TUI input mode.
type editorMode int

const (
	modeNormal editorMode = iota
	// modeConnect waits for a target node for a pending connection.
	modeConnect
)

// =============================================================================
// EditorModel - Interactive flow editing
// =============================================================================

// EditorModel is the bubbletea model for terminal flow editing. It
// drives a live store: every key maps to a store operation, and the
// view re-reads the derived projections each frame.
type EditorModel struct {
	Store  *store.Store
	Cursor int
	Height int
	Offset int

	mode        editorMode
	connectFrom string
	status      string
}

// NewEditorModel creates an editor model over a store with a pan/zoom
// engine attached so zoom keys work.
func NewEditorModel(st *store.Store) EditorModel {
	st.SetDimensions(flow.Dimensions{Width: 800, Height: 600})
	st.AttachPanZoom(panzoom.New(panzoom.Options{
		Dimensions: st.Dimensions(),
		OnChange:   st.SetViewport,
	}))
	return EditorModel{
		Store:  st,
		Height: 15,
		status: "arrows move · c connect · x delete · +/- zoom · f fit · q quit",
	}
}

func (m EditorModel) Init() tea.Cmd {
	return nil
}

func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if h := msg.Height - 8; h > 3 {
			m.Height = h
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m EditorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nodes := m.Store.Nodes()

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		if m.mode == modeConnect {
			m.mode = modeNormal
			m.connectFrom = ""
			m.status = "connection cancelled"
			return m, nil
		}
		return m, tea.Quit

	case "tab", "j", "down":
		if m.Cursor < len(nodes)-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case "shift+tab", "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
		}

	case "left", "right", "h", "l":
		m.nudge(msg.String())

	case "enter", " ":
		if m.mode == modeConnect {
			return m.finishConnect(), nil
		}
		if n := m.current(); n != nil {
			m.Store.HandleNodeSelection(n.ID)
		}

	case "c":
		if n := m.current(); n != nil {
			m.mode = modeConnect
			m.connectFrom = n.ID
			m.status = fmt.Sprintf("connecting from %s: pick a target, enter to confirm", n.ID)
		}

	case "x", "delete", "backspace":
		removedNodes, removedEdges, err := m.Store.DeleteSelected(context.Background())
		if err != nil {
			m.status = err.Error()
		} else {
			m.status = fmt.Sprintf("removed %d nodes, %d edges", len(removedNodes), len(removedEdges))
			if m.Cursor >= len(m.Store.Nodes()) && m.Cursor > 0 {
				m.Cursor = len(m.Store.Nodes()) - 1
			}
		}

	case "+", "=":
		if err := m.Store.ZoomIn(store.ZoomOptions{}); err != nil {
			m.status = err.Error()
		}
	case "-":
		if err := m.Store.ZoomOut(store.ZoomOptions{}); err != nil {
			m.status = err.Error()
		}

	case "f":
		if m.Store.FitView(store.FitViewOptions{WaitForInit: true}) {
			m.status = "fit view applied"
		} else {
			m.status = "nothing to fit"
		}
	}

	return m, nil
}

// nudge moves the node under the cursor horizontally. Vertical moves
// ride on j/k being taken by list navigation, so only x changes here.
func (m *EditorModel) nudge(key string) {
	n := m.current()
	if n == nil {
		return
	}
	dx := nudgeStep
	if key == "left" || key == "h" {
		dx = -nudgeStep
	}
	m.Store.UpdateNodePositions([]flow.NodeDrag{{
		ID:       n.ID,
		Position: flow.XYPosition{X: n.Position.X + dx, Y: n.Position.Y},
	}}, false)
	m.status = fmt.Sprintf("moved %s", n.ID)
}

func (m EditorModel) finishConnect() EditorModel {
	target := m.current()
	m.mode = modeNormal
	from := m.connectFrom
	m.connectFrom = ""
	if target == nil {
		m.status = "no target"
		return m
	}

	edge, err := m.Store.Connect(flow.Connection{Source: from, Target: target.ID})
	if err != nil {
		m.status = err.Error()
		return m
	}
	m.status = fmt.Sprintf("connected %s %s %s (%s)", from, iconArrow, target.ID, edge.ID)
	return m
}

func (m EditorModel) current() *flow.Node {
	nodes := m.Store.Nodes()
	if m.Cursor < 0 || m.Cursor >= len(nodes) {
		return nil
	}
	return nodes[m.Cursor]
}

func (m EditorModel) View() string {
	var b strings.Builder

	vp := m.Store.Viewport()
	b.WriteString(editorTitleStyle.Render("xyflow editor"))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  zoom %.2f · viewport (%.0f, %.0f)\n\n", vp.Zoom, vp.X, vp.Y)))

	nodes := m.Store.VisibleNodes()
	if len(nodes) == 0 {
		b.WriteString(listDimStyle.Render("  (empty graph)\n"))
	}

	end := min(m.Offset+m.Height, len(nodes))
	for i := m.Offset; i < end; i++ {
		n := nodes[i]
		line := fmt.Sprintf("%s  (%.0f, %.0f)", n.ID, n.AbsolutePosition.X, n.AbsolutePosition.Y)
		if n.Type != "" {
			line += listDimStyle.Render("  " + n.Type)
		}

		cursor := "  "
		style := listNormalStyle
		switch {
		case m.mode == modeConnect && n.ID == m.connectFrom:
			style = listConnectStyle
		case i == m.Cursor:
			cursor = editorCursorStyle.Render("> ")
			style = listSelectedStyle
		}
		if n.Selected {
			line += " " + styleIconSuccess.Render(iconSuccess)
		}

		b.WriteString(cursor + style.Render(line) + "\n")
	}

	b.WriteString("\n")
	edges := m.Store.Edges()
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d nodes · %d edges\n", len(nodes), len(edges))))
	b.WriteString(listDimStyle.Render("  " + m.status + "\n"))
	return b.String()
}
