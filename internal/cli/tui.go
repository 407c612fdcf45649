package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/bpdoc/pkg/manifest"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
	headerStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// =============================================================================
// RunListModel - Interactive run browser
// =============================================================================

// RunListModel is the bubbletea model for browsing recorded runs. Enter
// toggles the detail pane of the run under the cursor.
type RunListModel struct {
	Runs    []manifest.Run
	Cursor  int
	Height  int
	Offset  int
	Details bool
}

// NewRunListModel creates a new run list model.
func NewRunListModel(runs []manifest.Run) RunListModel {
	return RunListModel{Runs: runs, Height: 15}
}

func (m RunListModel) Init() tea.Cmd {
	return nil
}

func (m RunListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Runs)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Details = !m.Details
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 14
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m RunListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Recorded Runs"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.Runs) == 0 {
		b.WriteString(listDimStyle.Render("  no runs recorded"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Runs))
	b.WriteString(runTable(m.Runs[m.Offset:end], m.Cursor-m.Offset).Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Runs))))

	if m.Details {
		b.WriteString("\n\n")
		b.WriteString(runDetails(m.Runs[m.Cursor]))
	}
	return b.String()
}

// runTable renders runs as a table. The row at cursor is highlighted; pass
// -1 for none.
func runTable(runs []manifest.Run, cursor int) *table.Table {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		marker := "  "
		if i == cursor {
			marker = "▸ "
		}
		rows[i] = []string{
			marker,
			formatRelativeTime(r.StartedAt),
			r.Title,
			r.State,
			fmt.Sprint(r.Documents),
			fmt.Sprint(r.Skipped),
			fmt.Sprint(r.Unresolved),
			formatDuration(r.Duration()),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Started", "Title", "State", "Docs", "Skipped", "Unresolved", "Took").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row < 0 || row >= len(runs) {
				return lipgloss.NewStyle()
			}
			style := lipgloss.NewStyle()
			if col == 3 {
				style = style.Foreground(stateColor(runs[row].State))
			}
			if row == cursor {
				return style.Bold(true)
			}
			return style
		})
}

func runDetails(r manifest.Run) string {
	var b strings.Builder
	line := func(k, v string) {
		fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render(fmt.Sprintf("%-10s", k+":")), StyleValue.Render(v))
	}
	line("Run", r.ID)
	line("Started", r.StartedAt.Local().Format(time.DateTime))
	if !r.FinishedAt.IsZero() {
		line("Finished", r.FinishedAt.Local().Format(time.DateTime))
	}
	line("State", r.State)
	if r.Error != "" {
		line("Error", r.Error)
	}
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "—"
	}
	return d.Round(time.Millisecond).String()
}
