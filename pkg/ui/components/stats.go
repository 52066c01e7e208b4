package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds counters and the latest system metrics for display.
type Stats struct {
	Swaps              int64
	Completed          int64
	Failed             int64
	Alerts             int64
	CacheHitRate       float64
	APILatencyMs       float64
	ErrorRate          float64
	ActiveTransactions int
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// Stats returns the current statistics.
func (s *StatsComponent) Stats() Stats {
	return s.stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	failed := valueStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	if s.stats.Failed > 0 {
		failed = errorStyle.Render(fmt.Sprintf("%d", s.stats.Failed))
	}

	latency := "n/a"
	if s.stats.APILatencyMs >= 0 {
		latency = fmt.Sprintf("%.0fms", s.stats.APILatencyMs)
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Swaps: %s  │  Completed: %s  │  Failed: %s  │  Alerts: %s\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Swaps)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Completed)),
			failed,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Alerts)),
		) +
		fmt.Sprintf("Cache hit rate: %s  │  Chain latency: %s  │  Error rate: %s  │  Active: %s",
			valueStyle.Render(fmt.Sprintf("%.1f%%", s.stats.CacheHitRate)),
			valueStyle.Render(latency),
			valueStyle.Render(fmt.Sprintf("%.1f%%", s.stats.ErrorRate)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.ActiveTransactions)),
		)
}
