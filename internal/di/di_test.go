package di_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/swap-router/internal/di"
)

type counter struct{ n int }

func TestRegisterToken_BuildsOnce(t *testing.T) {
	c := di.NewContainer()
	c.Register("config", "cfg")

	builds := 0
	tok := di.NewToken[*counter]("test.Counter")
	di.RegisterToken(c, tok, func(sr di.ServiceRegistry) *counter {
		builds++
		assert.Equal(t, "cfg", sr.Get("config"))
		return &counter{n: builds}
	})

	a := di.GetToken(c, tok)
	b := di.GetToken(c, tok)

	assert.Same(t, a, b)
	assert.Equal(t, 1, builds)
}

func TestGet_UnknownPanics(t *testing.T) {
	c := di.NewContainer()
	assert.Panics(t, func() { c.Get("missing") })
}

func TestGetToken_WrongTypePanics(t *testing.T) {
	c := di.NewContainer()
	c.Register("x", 1)
	assert.Panics(t, func() { di.GetToken(c, di.NewToken[string]("x")) })
}
