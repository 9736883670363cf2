package service

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Shrey-sa/tree-tracker/internal/events/domain"
)

var _ domain.Publisher = (*Logger)(nil)

// Logger publishes events as structured log lines. Types ending in ".failed"
// are logged at error level so alerting on log level catches failed runs.
type Logger struct{ log zerolog.Logger }

func NewLogger(log zerolog.Logger) *Logger { return &Logger{log: log} }

func (l *Logger) Publish(ctx context.Context, e domain.Event) error {
	ev := l.log.Info()
	if strings.HasSuffix(e.Type, ".failed") {
		ev = l.log.Error()
	}

	keys := make([]string, 0, len(e.Meta))
	for k := range e.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	meta := zerolog.Dict()
	for _, k := range keys {
		meta = meta.Str(k, e.Meta[k])
	}

	ev.Str("type", e.Type).
		Dict("meta", meta).
		Time("ts", e.Time).
		Msg("event")
	return nil
}
