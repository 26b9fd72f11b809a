package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorBehaviors(t *testing.T) {
	base := errors.New("dial tcp: refused")
	conn := &ConnectionError{Endpoint: "ws://localhost:9944", Err: base}
	wrapped := fmt.Errorf("balances: %w", conn)

	assert.True(t, ShouldSilenceUsage(wrapped))
	assert.Equal(t, "Could not reach ws://localhost:9944", GetUserMessage(wrapped))
	assert.Contains(t, GetRecoveryHint(wrapped), "endpoints")
	assert.ErrorIs(t, wrapped, base)

	cfgErr := &ConfigError{Path: "/tmp/stakectl.toml", Err: base}
	assert.True(t, ShouldSilenceUsage(cfgErr))
	assert.Equal(t, cfgErr.Error(), GetUserMessage(cfgErr))
	assert.Contains(t, GetRecoveryHint(cfgErr), "config init")

	plain := errors.New("boom")
	assert.False(t, ShouldSilenceUsage(plain))
	assert.Equal(t, "boom", GetUserMessage(plain))
	assert.Empty(t, GetRecoveryHint(plain))

	assert.False(t, ShouldSilenceUsage(nil))
	assert.Empty(t, GetUserMessage(nil))
}
