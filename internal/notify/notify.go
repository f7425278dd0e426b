// Package notify delivers push messages to a user's registered devices.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Sender pushes one message to a set of device tokens.
type Sender interface {
	Send(ctx context.Context, message string, deviceTokens []string, title string) error
}

// LogSender records pushes in the log instead of calling a push gateway.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, message string, deviceTokens []string, title string) error {
	s.logger.Info("push notification",
		zap.String("title", title),
		zap.String("message", message),
		zap.Int("devices", len(deviceTokens)))
	return nil
}

// Dispatch sends through sender and only logs a failure. Nothing is sent
// when there are no device tokens.
func Dispatch(ctx context.Context, sender Sender, logger *zap.Logger, message string, deviceTokens []string, title string) {
	if sender == nil || len(deviceTokens) == 0 {
		return
	}
	if err := sender.Send(ctx, message, deviceTokens, title); err != nil {
		logger.Warn("push notification failed",
			zap.String("title", title),
			zap.Int("devices", len(deviceTokens)),
			zap.Error(err))
	}
}
