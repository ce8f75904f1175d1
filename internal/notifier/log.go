package notifier

import (
	"context"
	"log/slog"

	"github.com/internradar/internradar/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes alerts to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each alert via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, title, message string) error {
	n.logger.Info("notification", "title", title, "message", message)
	return nil
}
