package domain

import (
	"context"
	"errors"
	"time"
)

var ErrUnknownKey = errors.New("unknown setting key")

// Service provides typed access to runtime settings stored in app_settings,
// falling back to the supplied default when a key is absent or malformed.
type Service interface {
	GetString(ctx context.Context, key string, def string) (string, error)
	GetDuration(ctx context.Context, key string, def time.Duration) (time.Duration, error)
	GetInt(ctx context.Context, key string, def int) (int, error)
}

// Repository abstracts storage of app settings.
type Repository interface {
	// Get returns (value, found, err) for an exact key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Upsert stores a key.
	Upsert(ctx context.Context, key string, value string, secret bool) error
}

// Common keys
const (
	KeyEmailProvider = "email.provider" // smtp | brevo | postmark | file
	KeyEmailFrom     = "email.from"

	KeyOverdueRowCap    = "digest.overdue.row_cap"
	KeyInspectionRowCap = "digest.inspection.row_cap"
	// KeyInspectionWindow uses Go duration strings, e.g. "336h".
	KeyInspectionWindow = "digest.inspection.window"
)

// Keys lists every setting that may be overridden at runtime.
var Keys = []string{KeyEmailProvider, KeyEmailFrom, KeyOverdueRowCap, KeyInspectionRowCap, KeyInspectionWindow}

// IsSecretKey reports whether values under key must be masked when displayed.
func IsSecretKey(key string) bool {
	switch key {
	case KeyEmailProvider, KeyEmailFrom, KeyOverdueRowCap, KeyInspectionRowCap, KeyInspectionWindow:
		return false
	}
	return true
}
