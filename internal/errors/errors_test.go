package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ExternalError(cause, "fetching audit trail failed")

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "fetching audit trail failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDatabase, SeverityHigh, "ignored"))
}

func TestIsTypeWalksChain(t *testing.T) {
	inner := DatabaseError(stderrors.New("deadlock"), "insert job")
	outer := fmt.Errorf("request failed: %w", inner)

	assert.True(t, IsType(outer, ErrorTypeDatabase))
	assert.False(t, IsType(outer, ErrorTypeExternal))
	assert.False(t, IsType(nil, ErrorTypeDatabase))
}

func TestConstructorTypes(t *testing.T) {
	tests := []struct {
		err      *Error
		errType  ErrorType
		severity Severity
	}{
		{ConfigError("dsn missing"), ErrorTypeConfig, SeverityCritical},
		{ConfigErrorf("bad %s", "port"), ErrorTypeConfig, SeverityCritical},
		{ValidationError("unknown store type"), ErrorTypeValidation, SeverityHigh},
		{ExternalError(stderrors.New("x"), "audit log"), ErrorTypeExternal, SeverityCritical},
		{DatabaseError(stderrors.New("x"), "jobs"), ErrorTypeDatabase, SeverityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.errType, tt.err.Type, tt.err.Message)
		assert.Equal(t, tt.severity, tt.err.Severity, tt.err.Message)
	}
}

func TestWithContextAndDetailedString(t *testing.T) {
	err := DatabaseError(stderrors.New("no such table"), "job store init failed").
		WithContext("type", "sqlite")

	require.Contains(t, err.Context, "type")

	detail := err.DetailedString()
	assert.Contains(t, detail, "DATABASE")
	assert.Contains(t, detail, "HIGH")
	assert.Contains(t, detail, "job store init failed")
	assert.Contains(t, detail, "no such table")
	assert.Contains(t, detail, "type: sqlite")
}

func TestErrorIsMatchesOnType(t *testing.T) {
	a := ConfigError("one")
	b := ConfigError("two")
	c := ValidationError("three")

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}
