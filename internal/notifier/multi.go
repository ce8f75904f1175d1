package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/internradar/internradar/internal/model"
)

var _ model.Notifier = (*MultiNotifier)(nil)

// MultiNotifier delivers each alert to every channel. It fails only when
// every channel fails; partial failures are logged.
type MultiNotifier struct {
	notifiers []model.Notifier
	logger    *slog.Logger
}

func NewMultiNotifier(logger *slog.Logger, notifiers ...model.Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers, logger: logger}
}

func (m *MultiNotifier) Notify(ctx context.Context, title, message string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, title, message); err != nil {
			m.logger.Warn("notification channel failed", "channel", fmt.Sprintf("%T", n), "error", err)
			errs = append(errs, err)
		}
	}
	if len(m.notifiers) > 0 && len(errs) == len(m.notifiers) {
		return fmt.Errorf("all %d notification channels failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
