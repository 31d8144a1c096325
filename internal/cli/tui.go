package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/phrasetower/pkg/graph"
	"github.com/matzehuels/phrasetower/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// BrowseModel - Interactive hierarchy navigation
// =============================================================================

// BrowseModel is the bubbletea model for walking a hierarchy from general
// to specific phrases. The list shows the children of the last element on
// the trail, or the roots when the trail is empty.
type BrowseModel struct {
	Hierarchy *pipeline.Hierarchy
	Trail     []int64
	Items     []int64
	Cursor    int
	Offset    int
	Height    int

	builder *graph.Builder[int64, string]
	cursors []int // cursor position at each trail level, restored on ascend
}

// NewBrowseModel creates a browse model. When start is non-nil the walk
// begins below that element instead of at the roots.
func NewBrowseModel(h *pipeline.Hierarchy, start *int64) BrowseModel {
	m := BrowseModel{
		Hierarchy: h,
		Height:    15,
		builder:   graph.NewBuilder(h.Store, graph.Options{}),
	}
	if start != nil {
		m.Trail = []int64{*start}
		m.cursors = []int{0}
	}
	m.Items = m.list()
	return m
}

func (m BrowseModel) list() []int64 {
	if len(m.Trail) == 0 {
		return m.builder.Roots(false)
	}
	e, ok := m.Hierarchy.Store.Get(m.Trail[len(m.Trail)-1])
	if !ok {
		return nil
	}
	return e.Children()
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Items)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", "right", "l":
			m = m.descend()
		case "backspace", "left", "h":
			m = m.ascend()
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m BrowseModel) descend() BrowseModel {
	if len(m.Items) == 0 {
		return m
	}
	id := m.Items[m.Cursor]
	e, ok := m.Hierarchy.Store.Get(id)
	if !ok || len(e.Children()) == 0 {
		return m
	}
	m.Trail = append(m.Trail[:len(m.Trail):len(m.Trail)], id)
	m.cursors = append(m.cursors[:len(m.cursors):len(m.cursors)], m.Cursor)
	m.Items = m.list()
	m.Cursor, m.Offset = 0, 0
	return m
}

func (m BrowseModel) ascend() BrowseModel {
	if len(m.Trail) == 0 {
		return m
	}
	last := len(m.Trail) - 1
	cursor := m.cursors[last]
	m.Trail = m.Trail[:last]
	m.cursors = m.cursors[:last]
	m.Items = m.list()
	m.Cursor = min(cursor, max(len(m.Items)-1, 0))
	m.Offset = max(0, m.Cursor-m.Height+1)
	return m
}

// Current returns the element under the cursor, if any.
func (m BrowseModel) Current() (int64, bool) {
	if len(m.Items) == 0 {
		return 0, false
	}
	return m.Items[m.Cursor], true
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Browse Hierarchy"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(m.breadcrumb()))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ open  ⌫ back  q quit"))
	b.WriteString("\n\n")

	if len(m.Items) == 0 {
		b.WriteString(listDimStyle.Render("  (empty)"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Items))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e, ok := m.Hierarchy.Store.Get(m.Items[i])
		if !ok {
			continue
		}
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			strconv.FormatInt(e.ID(), 10),
			elementLabel(m.Hierarchy, e),
			strconv.Itoa(e.Len()),
			strconv.Itoa(len(e.Children())),
			strconv.Itoa(len(e.Parents())),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Phrase", "Tokens", "Children", "Parents").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Items) {
				return lipgloss.NewStyle()
			}
			e, _ := m.Hierarchy.Store.Get(m.Items[idx])
			hasChildren := e != nil && len(e.Children()) > 0

			switch {
			case idx == m.Cursor:
				return listSelectedStyle
			case col >= 3:
				return listDimStyle
			case hasChildren:
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))

	return b.String()
}

func (m BrowseModel) breadcrumb() string {
	parts := []string{"roots"}
	for _, id := range m.Trail {
		if e, ok := m.Hierarchy.Store.Get(id); ok {
			parts = append(parts, elementLabel(m.Hierarchy, e))
		}
	}
	return strings.Join(parts, " → ")
}
