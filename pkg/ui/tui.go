package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/swap-router/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

var stepOrder = []string{"config", "ethereum", "binance", "modules"}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	keys        KeyMap
	swaps       *components.SwapsComponent
	prices      *components.PricesComponent
	stats       *components.StatsComponent
	connections *components.StatusComponent

	phase        Phase
	welcomeStart time.Time

	quitting   bool
	paused     bool
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry
	activity   []string

	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		keys:         DefaultKeyMap(),
		swaps:        components.NewSwapsComponent(50, 8),
		prices:       components.NewPricesComponent(),
		stats:        components.NewStatsComponent(),
		connections:  components.NewStatusComponent("Ethereum", "Binance"),
		phase:        PhaseWelcome,
		welcomeStart: now,
		errors:       make([]ErrorEntry, 0, 3),
		activity:     make([]string, 0, 8),
		startupSteps: map[string]*StartupStep{
			"config":   {Name: "Loading configuration", Status: "pending"},
			"ethereum": {Name: "Connecting to Ethereum", Status: "pending"},
			"binance":  {Name: "Connecting to Binance", Status: "pending"},
			"modules":  {Name: "Starting modules", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Update must not call Send.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.leaveWelcome()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.swaps.Clear()
			m.activity = m.activity[:0]
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.swaps.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.swaps.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		if m.phase == PhaseStartup && m.startupDone() {
			m.phase = PhaseDashboard
		}
		return m, tickCmd()

	case SwapMsg:
		st := m.stats.Stats()
		switch msg.Stage {
		case "started":
			st.Swaps++
		case "failed":
			st.Failed++
		}
		m.stats.Update(st)
		if !m.paused {
			m.swaps.Add(components.SwapRow{
				Time:   stamp(msg.Timestamp),
				Pair:   msg.Pair,
				Amount: msg.AmountIn,
				Status: msg.Stage,
				Detail: msg.Detail,
			})
		}
		m.lastUpdate = time.Now()

	case TransactionMsg:
		st := m.stats.Stats()
		switch msg.Status {
		case "completed":
			st.Completed++
		case "failed", "timeout":
			st.Failed++
		}
		m.stats.Update(st)
		line := fmt.Sprintf("tx %s %s", shortHash(msg.Hash), msg.Status)
		if msg.Detail != "" {
			line += " (" + msg.Detail + ")"
		}
		m.addActivity(line)

	case MetricsMsg:
		st := m.stats.Stats()
		st.CacheHitRate = msg.CacheHitRate
		st.APILatencyMs = msg.APILatencyMs
		st.ErrorRate = msg.ErrorRate
		st.ActiveTransactions = msg.ActiveTransactions
		m.stats.Update(st)
		if msg.APILatencyMs >= 0 {
			m.connections.Update(components.ConnectionStatus{
				Name:       "Ethereum",
				Connected:  true,
				Latency:    time.Duration(msg.APILatencyMs * float64(time.Millisecond)),
				LastUpdate: time.Now(),
			})
		}
		m.lastUpdate = time.Now()

	case AlertMsg:
		st := m.stats.Stats()
		st.Alerts++
		m.stats.Update(st)
		m.addActivity(fmt.Sprintf("%s alert %s: %s", msg.Kind, msg.ID, msg.Detail))

	case HighRiskMsg:
		m.addActivity(fmt.Sprintf("HIGH RISK %s %s: %s", msg.Pair, msg.Amount, msg.Reason))

	case PriceUpdateMsg:
		if !m.paused {
			m.prices.Observe(msg.Token, msg.Price, msg.Source, msg.Timestamp)
		}
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.connections.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		if step, ok := m.startupSteps[strings.ToLower(msg.Name)]; ok && (step.Status == "pending" || step.Status == "connecting") {
			step.Status = "connecting"
			if msg.Connected {
				step.Status = "connected"
			}
		}

	case ErrorMsg:
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.addActivity(msg.Level + ": " + msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
	}

	return m, nil
}

func (m Model) startupDone() bool {
	for _, step := range m.startupSteps {
		switch step.Status {
		case "connected", "done", "failed":
		default:
			return false
		}
	}
	return true
}

// addActivity keeps the last 6 lines.
func (m *Model) addActivity(message string) {
	m.activity = append(m.activity, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message))
	if len(m.activity) > 6 {
		m.activity = m.activity[len(m.activity)-6:]
	}
	m.lastUpdate = time.Now()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}

func shortHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:8] + ".." + h[len(h)-4:]
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(BannerStyle.Render(" ⇄ Swap Router "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	leftCol := m.prices.View() + "\n\n" + m.renderActivityFeed()
	rightCol := m.swaps.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := max(m.width-4, 40)
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(ErrorStyle.Bold(true).Render("ERRORS"))
		b.WriteString(MutedStyle.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedStyle.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(WarnStyle.Bold(true).Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.keys.HelpLine()))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	var sb strings.Builder
	sb.WriteString(SectionStyle.Render("ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activity) == 0 {
		sb.WriteString(MutedStyle.Render("  Waiting for events..."))
		return sb.String()
	}
	for _, line := range m.activity {
		if strings.Contains(line, "alert") || strings.Contains(line, "HIGH RISK") {
			sb.WriteString(WarnStyle.Render("  " + line))
		} else {
			sb.WriteString(MutedStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	logo := `
   ███████╗██╗    ██╗ █████╗ ██████╗
   ██╔════╝██║    ██║██╔══██╗██╔══██╗
   ███████╗██║ █╗ ██║███████║██████╔╝
   ╚════██║██║███╗██║██╔══██║██╔═══╝
   ███████║╚███╔███╔╝██║  ██║██║
   ╚══════╝ ╚══╝╚══╝ ╚═╝  ╚═╝╚═╝
`
	sb.WriteString(SectionStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(MutedStyle.Render("              R O U T E R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(OKStyle.Render(fmt.Sprintf("          Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(MutedStyle.Render("    Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStartupScreen() string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(SectionStyle.MarginBottom(1).Render("  ⇄ Swap Router"))
	sb.WriteString("\n\n")
	sb.WriteString(StrongStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, k := range stepOrder {
		step := m.startupSteps[k]

		var icon, statusText string
		var style lipgloss.Style
		switch step.Status {
		case "connected", "done":
			icon, statusText, style = "✓", "Ready", OKStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			icon = spinners[int(time.Since(m.startupTime).Milliseconds()/200)%len(spinners)]
			statusText, style = "Connecting...", WarnStyle
		case "failed":
			icon, statusText, style = "✗", "Failed", ErrorStyle
		default:
			icon, statusText, style = "○", "Pending", MutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			MutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(MutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n")

	for _, err := range m.errors {
		sb.WriteString(ErrorStyle.Render("  " + err.Message))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m Model) renderStatusBar() string {
	parts := []string{m.connections.View()}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, MutedStyle.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. main sets it before Run.
var OnStartModules func()

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
