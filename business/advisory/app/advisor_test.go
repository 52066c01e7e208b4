package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/business/advisory/domain"
	"github.com/fd1az/swap-router/internal/apperror"
	"github.com/fd1az/swap-router/internal/logger"
)

type scriptedCompleter struct {
	reply string
	err   error
	got   []domain.Message
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []domain.Message) (string, error) {
	c.got = messages
	return c.reply, c.err
}

func newTestAdvisor(c Completer) *Advisor {
	return NewAdvisor(c, logger.New(io.Discard, logger.LevelError, "test", nil))
}

func TestAdvisor_RecommendSendsPayloadAsJSON(t *testing.T) {
	c := &scriptedCompleter{reply: `{"recommendations":["keep 30% in stables"]}`}
	a := newTestAdvisor(c)

	advice, err := a.Recommend(context.Background(), map[string]string{"ETH": "1.5"}, "Analyze this portfolio")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep 30% in stables"}, advice.Recommendations)

	require.Len(t, c.got, 2)
	assert.Equal(t, domain.RoleSystem, c.got[0].Role)
	assert.Equal(t, domain.RoleUser, c.got[1].Role)
	assert.Equal(t, `Analyze this portfolio: {"ETH":"1.5"}`, c.got[1].Content)
}

func TestAdvisor_RecommendFallsBackToRawText(t *testing.T) {
	a := newTestAdvisor(&scriptedCompleter{reply: "Buy low, sell high."})

	advice, err := a.Recommend(context.Background(), struct{}{}, "Advise")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy low, sell high."}, advice.Recommendations)
}

func TestAdvisor_AssessTrade(t *testing.T) {
	c := &scriptedCompleter{reply: `{"action":"reduce size","riskLevel":"high","reason":"impact 12%","confidence":0.9}`}
	a := newTestAdvisor(c)

	got, err := a.AssessTrade(context.Background(), map[string]any{"priceImpact": 12.0})
	require.NoError(t, err)
	assert.True(t, got.IsHighRisk())
	assert.Equal(t, "impact 12%", got.Reason)
	assert.True(t, strings.HasPrefix(c.got[1].Content, "Assess the risk of this swap: "))
}

func TestAdvisor_WrapsCompleterErrors(t *testing.T) {
	a := newTestAdvisor(&scriptedCompleter{err: errors.New("connection reset")})

	_, err := a.Recommend(context.Background(), 1, "x")
	assert.True(t, apperror.HasCode(err, apperror.CodeAdvisoryFailed))

	got, err := a.AssessTrade(context.Background(), 1)
	assert.True(t, apperror.HasCode(err, apperror.CodeAdvisoryFailed))
	assert.Equal(t, domain.RiskUnknown, got.RiskLevel)
}

func TestAdvisor_RejectsUnserialisablePayload(t *testing.T) {
	c := &scriptedCompleter{}
	a := newTestAdvisor(c)

	_, err := a.Recommend(context.Background(), make(chan int), "x")
	assert.True(t, apperror.HasCode(err, apperror.CodeAdvisoryFailed))
	assert.Nil(t, c.got)
}
