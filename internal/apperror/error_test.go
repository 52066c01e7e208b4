package apperror_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/internal/apperror"
)

func TestNew_UsesCatalogMessage(t *testing.T) {
	err := apperror.New(apperror.CodeNoPathFound, apperror.WithContext("ETH->USDC"))

	assert.Equal(t, "No swap path found", err.Message)
	assert.Equal(t, "NO_PATH_FOUND: No swap path found [ETH->USDC]", err.Error())

	custom := apperror.New(apperror.Code("SOMETHING_NEW"))
	assert.Equal(t, "SOMETHING_NEW", custom.Message)
}

func TestError_IncludesCause(t *testing.T) {
	err := apperror.New(apperror.CodeSubmissionFailed, apperror.WithCause(errors.New("nonce too low")))
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestHasCode_ThroughWrapping(t *testing.T) {
	root := errors.New("nonce too low")
	inner := apperror.New(apperror.CodeRetryExhausted, apperror.WithCause(root))
	outer := apperror.New(apperror.CodeSubmissionFailed, apperror.WithCause(inner))
	wrapped := fmt.Errorf("execute: %w", outer)

	tests := []struct {
		code apperror.Code
		want bool
	}{
		{apperror.CodeSubmissionFailed, true},
		{apperror.CodeRetryExhausted, true},
		{apperror.CodeNoPathFound, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, apperror.HasCode(wrapped, tt.code), "code %s", tt.code)
	}

	assert.ErrorIs(t, wrapped, root)
	assert.Equal(t, apperror.CodeSubmissionFailed, apperror.GetCode(wrapped))
	assert.Equal(t, apperror.CodeUnknownError, apperror.GetCode(root))
}

func TestWrap_KeepsExistingAppError(t *testing.T) {
	orig := apperror.New(apperror.CodePoolReadFailed)
	got := apperror.Wrap(orig, apperror.CodeInternalError, "pool 0x01")

	require.Same(t, orig, got)
	assert.Equal(t, "pool 0x01", got.Context)
	assert.Nil(t, apperror.Wrap(nil, apperror.CodeInternalError, ""))

	plain := apperror.Wrap(errors.New("boom"), apperror.CodeInternalError, "reader")
	assert.True(t, apperror.HasCode(plain, apperror.CodeInternalError))
	assert.Equal(t, "reader", plain.Context)
}

func TestLogValue(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	err := apperror.New(apperror.CodeUnknownToken,
		apperror.WithContext("XYZ"),
		apperror.WithCause(errors.New("not in registry")))
	log.Info("lookup", "error", err)

	var rec struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "UNKNOWN_TOKEN", rec.Error["code"])
	assert.Equal(t, "XYZ", rec.Error["context"])
	assert.Equal(t, "not in registry", rec.Error["cause"])
	assert.Contains(t, rec.Error["origin"], "error_test.go")
	assert.Contains(t, err.Stack(), "TestLogValue")
}
