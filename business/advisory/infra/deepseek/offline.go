package deepseek

import (
	"context"
	"strings"

	"github.com/fd1az/swap-router/business/advisory/app"
	"github.com/fd1az/swap-router/business/advisory/domain"
)

var _ app.Completer = Offline{}

// Offline answers from canned replies when no API key is configured.
type Offline struct{}

// Complete picks a reply by the topic of the last user message.
func (Offline) Complete(_ context.Context, messages []domain.Message) (string, error) {
	var prompt string
	for _, m := range messages {
		if m.Role == domain.RoleUser {
			prompt = strings.ToLower(m.Content)
		}
	}

	switch {
	case strings.Contains(prompt, "risk"):
		return `{"action":"proceed","riskLevel":"medium","reason":"offline assessment, no market context","confidence":0.5}`, nil
	case strings.Contains(prompt, "portfolio"):
		return `{"analysis":"Portfolio is well-balanced","riskScore":65,"recommendations":["Consider increasing ETH allocation","Maintain stable coin reserves","Review positions weekly"]}`, nil
	case strings.Contains(prompt, "strategy"):
		return `{"strategy":"Conservative growth","steps":["Rebalance portfolio monthly","Keep 30% in stable coins","Use DCA for major purchases"]}`, nil
	}
	return `{"recommendations":["No advice available offline"]}`, nil
}
