package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/latticelab/subcell/pkg/pipeline"
)

// =============================================================================
// OrbitListModel - Interactive orbit browser
// =============================================================================

// OrbitListModel is the bubbletea model for browsing enumerated orbits.
type OrbitListModel struct {
	result *pipeline.Result

	Cursor   int
	Selected int // index of the chosen orbit, -1 if none
	Height   int
	Offset   int
}

// NewOrbitListModel creates a new orbit list model.
func NewOrbitListModel(result *pipeline.Result) OrbitListModel {
	return OrbitListModel{
		result:   result,
		Selected: -1,
		Height:   15,
	}
}

func (m OrbitListModel) Init() tea.Cmd {
	return nil
}

func (m OrbitListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.result.Enum.Orbits)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			m.Selected = m.Cursor
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m OrbitListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Irreducible Configurations"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ write structure  q quit"))
	b.WriteString("\n\n")

	orbits := m.result.Enum.Orbits
	end := m.Offset + m.Height
	if end > len(orbits) {
		end = len(orbits)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		o := orbits[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", o.Rank),
			fmt.Sprintf("%d", o.Degeneracy),
			assignString(o.Assign, m.result.Job.Symb),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Rank", "Deg", "Configuration").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return listNormalStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]  N = %d", m.Cursor+1, len(orbits), m.result.Enum.Total)))

	return b.String()
}
