package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSender struct {
	calls int
	err   error
}

func (r *recordingSender) Send(context.Context, string, []string, string) error {
	r.calls++
	return r.err
}

func TestDispatchSwallowsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sender := &recordingSender{err: errors.New("gateway down")}

	Dispatch(context.Background(), sender, zap.New(core), "Order delivered", []string{"tok"}, "Delivered")

	assert.Equal(t, 1, sender.calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "push notification failed", logs.All()[0].Message)
}

func TestDispatchWithoutDevicesSendsNothing(t *testing.T) {
	sender := &recordingSender{}

	Dispatch(context.Background(), sender, zap.NewNop(), "hi", nil, "title")

	assert.Zero(t, sender.calls)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	err := NewLogSender(zap.New(core)).Send(context.Background(), "hi", []string{"a", "b"}, "title")

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(2), logs.All()[0].ContextMap()["devices"])
}
