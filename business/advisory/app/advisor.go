// Package app contains the advisory service.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/swap-router/business/advisory/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

const tracerName = "github.com/fd1az/swap-router/business/advisory/app"

const (
	advisorPrompt  = "You are an investment advisor specialised in cryptocurrency portfolios and DEX trading. Reply with a JSON object."
	assessorPrompt = "You are a risk analyst for decentralised exchange swaps. Reply with a JSON object with the fields action, riskLevel (low, medium or high), reason and confidence (0 to 1)."
)

// Completer sends a conversation to a text-generation service and returns
// the reply text.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message) (string, error)
}

// Advisor turns structured payloads into recommendations and risk
// assessments.
type Advisor struct {
	completer Completer
	logger    logger.LoggerInterface
	tracer    trace.Tracer
}

// NewAdvisor creates an Advisor.
func NewAdvisor(completer Completer, log logger.LoggerInterface) *Advisor {
	return &Advisor{
		completer: completer,
		logger:    log,
		tracer:    otel.Tracer(tracerName),
	}
}

// Recommend sends payload as JSON with instruction and parses the reply.
func (a *Advisor) Recommend(ctx context.Context, payload any, instruction string) (domain.Advice, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.recommend")
	defer span.End()

	text, err := a.ask(ctx, advisorPrompt, payload, instruction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return domain.Advice{}, err
	}

	advice := domain.ParseAdvice(text)
	span.SetAttributes(attribute.Int("recommendations", len(advice.Recommendations)))
	return advice, nil
}

// AssessTrade asks for a risk grade of trade. Replies that cannot be parsed
// are graded unknown rather than failing.
func (a *Advisor) AssessTrade(ctx context.Context, trade any) (domain.TradeAssessment, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.assess_trade")
	defer span.End()

	text, err := a.ask(ctx, assessorPrompt, trade, "Assess the risk of this swap")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return domain.TradeAssessment{RiskLevel: domain.RiskUnknown}, err
	}

	assessment := domain.ParseAssessment(text)
	span.SetAttributes(attribute.String("risk_level", string(assessment.RiskLevel)))
	if assessment.RiskLevel == domain.RiskUnknown {
		a.logger.Debug(ctx, "unparsed trade assessment", "reply", text)
	}
	return assessment, nil
}

func (a *Advisor) ask(ctx context.Context, system string, payload any, instruction string) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", apperror.New(apperror.CodeAdvisoryFailed, apperror.WithCause(err), apperror.WithContext("payload is not serialisable"))
	}

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: fmt.Sprintf("%s: %s", instruction, data)},
	}

	text, err := a.completer.Complete(ctx, messages)
	if err != nil {
		a.logger.Warn(ctx, "advisory request failed", "error", err)
		if apperror.HasCode(err, apperror.CodeAdvisoryFailed) {
			return "", err
		}
		return "", apperror.New(apperror.CodeAdvisoryFailed, apperror.WithCause(err))
	}
	return text, nil
}
