// Package domain contains advisory request and response types.
package domain

import (
	"encoding/json"
	"strings"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn sent to the text service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RiskLevel grades a proposed trade.
type RiskLevel string

const (
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
	RiskUnknown RiskLevel = "unknown"
)

// Advice is a parsed recommendation response. Raw always holds the text the
// service returned.
type Advice struct {
	Recommendations []string `json:"recommendations"`
	Analysis        string   `json:"analysis,omitempty"`
	RiskScore       float64  `json:"riskScore,omitempty"`
	Raw             string   `json:"-"`
}

// TradeAssessment is a parsed risk assessment.
type TradeAssessment struct {
	Action     string    `json:"action"`
	RiskLevel  RiskLevel `json:"riskLevel"`
	Reason     string    `json:"reason"`
	Confidence float64   `json:"confidence"`
	Raw        string    `json:"-"`
}

// IsHighRisk reports whether the assessment flags the trade as high risk.
func (a TradeAssessment) IsHighRisk() bool {
	return a.RiskLevel == RiskHigh
}

// ParseAdvice reads {"recommendations": [...]} (or "steps") from text. When
// the text is not such an object the whole text becomes the only
// recommendation.
func ParseAdvice(text string) Advice {
	var body struct {
		Recommendations []string `json:"recommendations"`
		Steps           []string `json:"steps"`
		Analysis        string   `json:"analysis"`
		RiskScore       float64  `json:"riskScore"`
	}

	if err := json.Unmarshal([]byte(stripFence(text)), &body); err == nil {
		recs := body.Recommendations
		if len(recs) == 0 {
			recs = body.Steps
		}
		if len(recs) > 0 {
			return Advice{Recommendations: recs, Analysis: body.Analysis, RiskScore: body.RiskScore, Raw: text}
		}
	}

	return Advice{Recommendations: []string{strings.TrimSpace(text)}, Raw: text}
}

// ParseAssessment reads {action, riskLevel, reason, confidence} from text.
// Unparseable text yields RiskUnknown with the text as the reason.
func ParseAssessment(text string) TradeAssessment {
	var a TradeAssessment
	if err := json.Unmarshal([]byte(stripFence(text)), &a); err == nil && a.RiskLevel != "" {
		a.RiskLevel = RiskLevel(strings.ToLower(string(a.RiskLevel)))
		switch a.RiskLevel {
		case RiskLow, RiskMedium, RiskHigh:
		default:
			a.RiskLevel = RiskUnknown
		}
		a.Raw = text
		return a
	}

	return TradeAssessment{RiskLevel: RiskUnknown, Reason: strings.TrimSpace(text), Raw: text}
}

// stripFence removes a surrounding ``` or ```json block.
func stripFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
