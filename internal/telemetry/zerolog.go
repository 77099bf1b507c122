package telemetry

import (
	"context"

	"github.com/rs/zerolog"
)

// zerologLogger wraps a zerolog.Logger. The teacher's ClueLogger shape
// (Debug/Info/Warn/Error taking ctx, msg, keyvals...) is kept identical;
// only the backing library differs since this node has no Goa service
// scaffold for goa.design/clue/log to attach to.
type zerologLogger struct {
	base zerolog.Logger
}

// NewZerologLogger constructs a Logger backed by zerolog, writing structured
// JSON to the given base logger (configure output/level on base before
// passing it in).
func NewZerologLogger(base zerolog.Logger) Logger {
	return zerologLogger{base: base}
}

func (l zerologLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.base.Debug(), msg, keyvals)
}

func (l zerologLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.base.Info(), msg, keyvals)
}

func (l zerologLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.base.Warn(), msg, keyvals)
}

func (l zerologLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	l.event(ctx, l.base.Error(), msg, keyvals)
}

func (zerologLogger) event(_ context.Context, ev *zerolog.Event, msg string, keyvals []any) {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	ev.Msg(msg)
}
