package ui

import "github.com/charmbracelet/lipgloss"

var (
	ColorAccent  = lipgloss.Color("#7C3AED")
	ColorOK      = lipgloss.Color("#10B981")
	ColorDanger  = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorBorder  = lipgloss.Color("#374151")
	ColorText    = lipgloss.Color("#FFFFFF")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorAccent).
			Padding(0, 2)

	SectionStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	StrongStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorText)
	OKStyle      = lipgloss.NewStyle().Foreground(ColorOK)
	WarnStyle    = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ColorDanger)
	MutedStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	HelpStyle    = MutedStyle.Padding(0, 1)
)
