package domain

import (
	"context"
	"time"
)

// Event is an operational record. Types in use: "digest.run.completed",
// "digest.run.failed" and "settings.update.success". Meta values are
// strings; secrets never appear in them.
type Event struct {
	Type string
	Meta map[string]string
	Time time.Time
}

// Publisher ships events to a sink (log today, a queue later).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
