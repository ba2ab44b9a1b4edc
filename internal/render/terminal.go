package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"healthboard/internal/board"
)

// Semantic colors for terminal output.
const (
	ColorUp    lipgloss.Color = "2"
	ColorDown  lipgloss.Color = "1"
	ColorMuted lipgloss.Color = "8"
)

// Terminal renders board nodes as bordered cards for the check command.
type Terminal struct {
	Card        lipgloss.Style
	Title       lipgloss.Style
	Up          lipgloss.Style
	Down        lipgloss.Style
	Muted       lipgloss.Style
	ShowDetails bool
}

// NewTerminal returns the default terminal styling.
func NewTerminal() *Terminal {
	return &Terminal{
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1),
		Title:       lipgloss.NewStyle().Bold(true),
		Up:          lipgloss.NewStyle().Foreground(ColorUp).Bold(true),
		Down:        lipgloss.NewStyle().Foreground(ColorDown).Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(ColorMuted),
		ShowDetails: true,
	}
}

// Render returns one card per node, stacked vertically.
func (t *Terminal) Render(nodes []board.ServiceNode) string {
	if len(nodes) == 0 {
		return t.Muted.Render("no services polled")
	}
	cards := make([]string, 0, len(nodes))
	for _, node := range nodes {
		cards = append(cards, t.Card.Render(t.cardBody(node)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards...)
}

// Summary renders a non-interactive table with one row per service.
func (t *Terminal) Summary(nodes []board.ServiceNode) string {
	if len(nodes) == 0 {
		return ""
	}

	nameWidth := len("SERVICE")
	rows := make([]table.Row, 0, len(nodes))
	for _, node := range nodes {
		if w := lipgloss.Width(node.Name); w > nameWidth {
			nameWidth = w
		}
		updated := "-"
		if !node.UpdatedAt.IsZero() {
			updated = node.UpdatedAt.Local().Format("15:04:05")
		}
		rows = append(rows, table.Row{node.Name, node.Status, strconv.Itoa(len(node.Components)), updated})
	}

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "SERVICE", Width: nameWidth},
			{Title: "STATUS", Width: 8},
			{Title: "COMPONENTS", Width: 10},
			{Title: "UPDATED", Width: 8},
		}),
		table.WithRows(rows),
		table.WithFocused(false),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true)
	s.Selected = lipgloss.NewStyle()
	tbl.SetStyles(s)
	// header line plus its bottom border
	tbl.SetHeight(len(rows) + 2)
	return tbl.View()
}

func (t *Terminal) cardBody(node board.ServiceNode) string {
	lines := []string{
		t.Title.Render(node.Name) + "  " + t.status(node.Status, node.StatusClass),
	}
	if node.Placeholder != "" {
		lines = append(lines, t.Muted.Render(node.Placeholder))
	}
	for _, comp := range node.Components {
		line := "  " + comp.Name
		if comp.Status != "" {
			line += "  " + t.status(comp.Status, comp.StatusClass)
		}
		if comp.Chart != nil {
			line += "  " + t.Muted.Render(diskSummary(*comp.Chart))
		}
		lines = append(lines, line)

		switch {
		case comp.Placeholder != "":
			lines = append(lines, "    "+t.Muted.Render(comp.Placeholder))
		case t.ShowDetails:
			for _, d := range strings.Split(comp.Details, "\n") {
				lines = append(lines, "    "+t.Muted.Render(d))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) status(text, class string) string {
	if class == board.ClassUp {
		return t.Up.Render(text)
	}
	return t.Down.Render(text)
}

func diskSummary(data board.PieData) string {
	total := data.Total()
	if total <= 0 {
		return "disk usage unknown"
	}
	return fmt.Sprintf("%s used of %s (%.1f%%)", bytesHuman(data.Used()), bytesHuman(total), data.Used()/total*100)
}

func bytesHuman(v float64) string {
	units := []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%.0f %s", v, units[i])
	}
	return fmt.Sprintf("%.1f %s", v, units[i])
}
