package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetryLogger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	hook := RetryLogger(zap.New(core))

	hook(2, ErrLockTimeout)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "transaction conflict, retrying", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["attempt"])
	assert.Equal(t, ErrLockTimeout.Error(), entries[0].ContextMap()["error"])
}

func TestDefaultTxOptions(t *testing.T) {
	opts := DefaultTxOptions()
	assert.Equal(t, 3, opts.MaxRetries)
	assert.False(t, opts.ReadOnly)
	assert.Nil(t, opts.OnRetry)
}
