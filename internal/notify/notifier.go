package notify

import (
	"context"
	"log/slog"

	"salvadanaio/internal/core"
	"salvadanaio/internal/log"
)

// Notifier receives outcomes. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, o core.Outcome)
}

// LogNotifier writes outcomes to the log, errors at warn level.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (n *LogNotifier) Notify(ctx context.Context, o core.Outcome) {
	level := slog.LevelInfo
	if o.Severity == core.SeverityError {
		level = slog.LevelWarn
	}
	n.logger.LogContext(ctx, level, o.Title, "message", o.Message, "severity", string(o.Severity))
}

// Multi forwards every outcome to each notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, o core.Outcome) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, o)
		}
	}
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, o core.Outcome)

func (f Func) Notify(ctx context.Context, o core.Outcome) {
	f(ctx, o)
}
