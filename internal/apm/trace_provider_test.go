package apm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProvider(t *testing.T) {
	tests := map[string]Provider{
		"zipkin":             ZipkinProvider,
		"ZIPKIN_PROVIDER":    ZipkinProvider,
		"otlp":               OTLPGRPCProvider,
		"OTLP_GRPC_PROVIDER": OTLPGRPCProvider,
		"otlp_http":          OTLPHTTPProvider,
		"console":            ConsoleProvider,
		"":                   EmptyProvider,
		"newrelic":           EmptyProvider,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseProvider(in), in)
	}
}

func TestSettings_HeaderMap(t *testing.T) {
	s := Settings{Headers: "x-honeycomb-team=abc, api-key=def,broken"}
	assert.Equal(t, map[string]string{"x-honeycomb-team": "abc", "api-key": "def"}, s.headerMap())
}

func TestNewTraceProvider_EmptyStops(t *testing.T) {
	tp := NewTraceProvider(nil, useEmpty())
	assert.NoError(t, tp.Stop())
}
