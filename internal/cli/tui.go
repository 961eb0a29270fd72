package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/search"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listMarkerStyle   = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// BrowseModel - Interactive search and selection
// =============================================================================

// viewMsg carries the session state after a search or selection.
type viewMsg struct {
	view search.View
	err  error
}

// updateMsg signals a background change in the session.
type updateMsg struct{}

// BrowseModel is the bubbletea model for the browse command. It owns no
// graph state of its own; every key that changes the selection goes through
// the session.
type BrowseModel struct {
	ctx     context.Context
	session *search.Session

	Input   string
	Editing bool
	Current search.View
	Cursor  int
	Offset  int
	Height  int
	Err     error
}

// NewBrowseModel creates a browse model. A non-empty query is searched on
// start.
func NewBrowseModel(ctx context.Context, session *search.Session, query string) BrowseModel {
	return BrowseModel{
		ctx:     ctx,
		session: session,
		Input:   query,
		Editing: query == "",
		Current: session.View(),
		Height:  10,
	}
}

func (m BrowseModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForUpdate()}
	if m.Input != "" {
		cmds = append(cmds, m.searchCmd(m.Input))
	}
	return tea.Batch(cmds...)
}

func (m BrowseModel) waitForUpdate() tea.Cmd {
	updates := m.session.Updates()
	return func() tea.Msg {
		select {
		case <-updates:
			return updateMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m BrowseModel) searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.session.Search(m.ctx, query)
		return viewMsg{view: v, err: err}
	}
}

func (m BrowseModel) selectCmd(id string) tea.Cmd {
	return func() tea.Msg {
		v, err := m.session.SelectNode(m.ctx, id)
		return viewMsg{view: v, err: err}
	}
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		if errors.Is(msg.err, search.ErrSuperseded) {
			msg.err = nil
		}
		m.Err = msg.err
		m.setView(msg.view)
	case updateMsg:
		m.setView(m.session.View())
		return m, m.waitForUpdate()
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 3 {
			m.Height = 3
		}
	case tea.KeyMsg:
		if m.Editing {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m BrowseModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if len(m.Current.Results) == 0 {
			return m, tea.Quit
		}
		m.Editing = false
	case tea.KeyEnter:
		if err := pgerrors.ValidateQuery(m.Input); err != nil {
			m.Err = err
			return m, nil
		}
		m.Editing = false
		m.Err = nil
		return m, m.searchCmd(m.Input)
	case tea.KeyBackspace:
		if r := []rune(m.Input); len(r) > 0 {
			m.Input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.Input += " "
	case tea.KeyRunes:
		m.Input += string(msg.Runes)
	}
	return m, nil
}

func (m BrowseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	results := m.Current.Results
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "/":
		m.Editing = true
	case "c":
		m.setView(m.session.ClearSelection(m.ctx))
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
			if m.Cursor < m.Offset {
				m.Offset = m.Cursor
			}
			return m, m.selectCmd(results[m.Cursor].ID)
		}
	case "down", "j":
		if m.Cursor < len(results)-1 {
			m.Cursor++
			if m.Cursor >= m.Offset+m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
			return m, m.selectCmd(results[m.Cursor].ID)
		}
	case "enter":
		if len(results) > 0 {
			return m, m.selectCmd(results[m.Cursor].ID)
		}
	}
	return m, nil
}

// setView replaces the view and moves the cursor onto the selected result.
func (m *BrowseModel) setView(v search.View) {
	m.Current = v
	if m.Cursor >= len(v.Results) {
		m.Cursor, m.Offset = 0, 0
	}
	for i, r := range v.Results {
		if r.ID == v.Snapshot.Selected {
			m.Cursor = i
			break
		}
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

// Selected returns the id of the selected paper, if any.
func (m BrowseModel) Selected() string { return m.Current.Snapshot.Selected }

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("papergraph"))
	b.WriteString("\n")
	if m.Editing {
		b.WriteString(listDimStyle.Render("type a query  ⏎ search  esc back"))
	} else {
		b.WriteString(listDimStyle.Render("↑/↓ select  / search  c clear  q quit"))
	}
	b.WriteString("\n\n")

	prompt := "› "
	if m.Editing {
		b.WriteString(listSelectedStyle.Render(prompt + m.Input + "▏"))
	} else {
		b.WriteString(listNormalStyle.Render(prompt + m.Input))
	}
	b.WriteString("\n\n")

	v := m.Current
	switch {
	case m.Err != nil:
		b.WriteString(StyleWarning.Render(pgerrors.UserMessage(m.Err)))
		b.WriteString("\n")
		return b.String()
	case v.Phase == search.PhaseLoading:
		b.WriteString(listDimStyle.Render("Searching..."))
		b.WriteString("\n")
		return b.String()
	case v.Phase == search.PhaseIdle && len(v.Results) == 0:
		return b.String()
	case len(v.Results) == 0:
		b.WriteString(listDimStyle.Render("No results"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(v.Results))
	for i := m.Offset; i < end; i++ {
		r := v.Results[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%s %s", cursor, listMarkerStyle.Render(scoreMarker(r)), r.DisplayTitle())
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		if a := formatAuthors(r.Authors); a != "" {
			b.WriteString("  " + listDimStyle.Render(a))
		}
		b.WriteString("\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(v.Results))))
	b.WriteString("\n\n")

	b.WriteString(m.graphSummary())
	return b.String()
}

// graphSummary describes the graph around the selection.
func (m BrowseModel) graphSummary() string {
	v := m.Current
	if v.Phase == search.PhasePending {
		return listDimStyle.Render("Laying out graph...") + "\n"
	}
	if v.Empty() {
		return StyleWarning.Render(emptyGraphHint) + "\n"
	}

	snap := v.Snapshot
	summary := fmt.Sprintf("%d papers · %d links", len(snap.Nodes), len(snap.Edges))
	if snap.Selected == "" {
		return listDimStyle.Render(summary) + "\n"
	}

	links := 0
	for _, e := range snap.Edges {
		if e.Highlighted {
			links++
		}
	}
	near := len(snap.Nodes) - snap.Faded() - 1
	return listDimStyle.Render(summary) + "\n" +
		StyleHighlight.Render(fmt.Sprintf("%d neighbours via %d links, %d faded", near, links, snap.Faded())) + "\n"
}
