package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ConnectionStatus represents a connection's status.
type ConnectionStatus struct {
	Name       string
	Connected  bool
	Latency    time.Duration
	LastUpdate time.Time
}

// StatusComponent renders connection status in insertion order.
type StatusComponent struct {
	connections []ConnectionStatus
}

// NewStatusComponent creates a status component with the named connections
// marked disconnected.
func NewStatusComponent(names ...string) *StatusComponent {
	s := &StatusComponent{connections: make([]ConnectionStatus, 0, len(names))}
	for _, n := range names {
		s.connections = append(s.connections, ConnectionStatus{Name: n})
	}
	return s
}

// Update updates a connection's status.
func (s *StatusComponent) Update(status ConnectionStatus) {
	for i, conn := range s.connections {
		if conn.Name == status.Name {
			s.connections[i] = status
			return
		}
	}
	s.connections = append(s.connections, status)
}

// Get returns the status of the named connection.
func (s *StatusComponent) Get(name string) (ConnectionStatus, bool) {
	for _, conn := range s.connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return ConnectionStatus{}, false
}

// View renders the connections on a single line.
func (s *StatusComponent) View() string {
	if len(s.connections) == 0 {
		return "No connections"
	}

	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	downStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	parts := make([]string, 0, len(s.connections))
	for _, conn := range s.connections {
		if !conn.Connected {
			parts = append(parts, downStyle.Render("○ "+conn.Name+" (disconnected)"))
			continue
		}
		label := conn.Name
		if conn.Latency > 0 {
			label = fmt.Sprintf("%s (%dms)", conn.Name, conn.Latency.Milliseconds())
		}
		parts = append(parts, okStyle.Render("● "+label))
	}

	return strings.Join(parts, "  │  ")
}
