package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// PriceRow is the latest reference price of one token.
type PriceRow struct {
	Token   string
	Price   decimal.Decimal
	Change  decimal.Decimal // percent against the previous observation
	Source  string
	Updated time.Time
}

// PricesComponent renders the reference price table.
type PricesComponent struct {
	rows map[string]PriceRow
}

// NewPricesComponent creates a new prices component.
func NewPricesComponent() *PricesComponent {
	return &PricesComponent{rows: make(map[string]PriceRow)}
}

// Observe records a price and derives the change from the previous one.
func (p *PricesComponent) Observe(token string, price decimal.Decimal, source string, at time.Time) {
	row := PriceRow{Token: token, Price: price, Source: source, Updated: at}
	if prev, ok := p.rows[token]; ok && !prev.Price.IsZero() {
		row.Change = price.Sub(prev.Price).Div(prev.Price).Mul(decimal.NewFromInt(100))
	}
	p.rows[token] = row
}

// Rows returns the rows sorted by token.
func (p *PricesComponent) Rows() []PriceRow {
	out := make([]PriceRow, 0, len(p.rows))
	for _, r := range p.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("PRICES"))
	sb.WriteString("\n\n")

	if len(p.rows) == 0 {
		sb.WriteString(dimStyle.Render("  Waiting for price data..."))
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("  %-8s  %14s  %10s  %-8s\n", "Token", "Price", "Change", "Source"))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 46)) + "\n")

	for _, row := range p.Rows() {
		changeStyle := positiveStyle
		if row.Change.IsNegative() {
			changeStyle = negativeStyle
		}
		sb.WriteString(fmt.Sprintf("  %-8s  %14s  %s  %-8s\n",
			row.Token,
			"$"+row.Price.StringFixed(2),
			changeStyle.Render(fmt.Sprintf("%+9.3f%%", row.Change.InexactFloat64())),
			dimStyle.Render(row.Source),
		))
	}

	return sb.String()
}
