package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuote(t *testing.T) {
	in, out, amount, err := parseQuote("ETH:USDC:1.5")
	require.NoError(t, err)
	assert.Equal(t, "ETH", in)
	assert.Equal(t, "USDC", out)
	assert.Equal(t, "1.5", amount)

	for _, bad := range []string{"", "ETH:USDC", "ETH::1", "a:b:c:d"} {
		_, _, _, err := parseQuote(bad)
		assert.Error(t, err, bad)
	}
}

func TestHeaderMap(t *testing.T) {
	assert.Equal(t,
		map[string]string{"x-api-key": "abc", "tenant": "t1"},
		headerMap("x-api-key=abc, tenant=t1,broken"),
	)
	assert.Empty(t, headerMap(""))
}
