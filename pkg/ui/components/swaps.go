// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SwapRow is one swap or transaction line in the feed.
type SwapRow struct {
	Time   string
	Pair   string
	Amount string
	Status string
	Detail string
}

// SwapsComponent renders the most recent swaps, newest first.
type SwapsComponent struct {
	rows    []SwapRow
	maxRows int
	visible int
	offset  int
}

// NewSwapsComponent creates a component keeping up to maxRows rows and
// showing visible of them at a time.
func NewSwapsComponent(maxRows, visible int) *SwapsComponent {
	return &SwapsComponent{
		rows:    make([]SwapRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add prepends a row.
func (s *SwapsComponent) Add(row SwapRow) {
	s.rows = append([]SwapRow{row}, s.rows...)
	if len(s.rows) > s.maxRows {
		s.rows = s.rows[:s.maxRows]
	}
}

// Len returns the number of stored rows.
func (s *SwapsComponent) Len() int {
	return len(s.rows)
}

// Clear drops all rows.
func (s *SwapsComponent) Clear() {
	s.rows = make([]SwapRow, 0)
	s.offset = 0
}

// ScrollUp moves the window towards newer rows.
func (s *SwapsComponent) ScrollUp() {
	if s.offset > 0 {
		s.offset--
	}
}

// ScrollDown moves the window towards older rows.
func (s *SwapsComponent) ScrollDown() {
	if s.offset+s.visible < len(s.rows) {
		s.offset++
	}
}

// View renders the swaps component.
func (s *SwapsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	pendingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("SWAPS (%d)", len(s.rows))))
	sb.WriteString("\n\n")

	if len(s.rows) == 0 {
		sb.WriteString(dimStyle.Render("  No swaps yet..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-8s  %-12s  %-18s  %-10s\n", "Time", "Pair", "Amount", "Status"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 56)) + "\n")

	end := min(s.offset+s.visible, len(s.rows))
	for _, row := range s.rows[s.offset:end] {
		style := pendingStyle
		switch row.Status {
		case "completed":
			style = okStyle
		case "failed", "timeout":
			style = failStyle
		}
		sb.WriteString(fmt.Sprintf("  %-8s  %-12s  %-18s  %s\n",
			row.Time,
			row.Pair,
			row.Amount,
			style.Render(fmt.Sprintf("%-10s", row.Status)),
		))
		if row.Detail != "" {
			sb.WriteString(dimStyle.Render("            "+row.Detail) + "\n")
		}
	}
	if len(s.rows) > s.visible {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %d-%d of %d", s.offset+1, end, len(s.rows))))
	}

	return sb.String()
}
