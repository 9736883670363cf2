package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
)

// Ensure File implements domain.Sender
var _ edomain.Sender = (*File)(nil)

// File writes each message as an .eml file for local development.
type File struct {
	dir string
	now func() time.Time
	seq atomic.Uint64
}

func NewFile(dir string) *File {
	return &File{dir: dir, now: time.Now}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func (f *File) Send(ctx context.Context, msg edomain.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if f.dir == "" {
		return fmt.Errorf("%w: MAIL_DEV_DIR is empty", edomain.ErrNotConfigured)
	}
	from := msg.From
	if from == "" {
		from = "no-reply@localhost"
	}
	now := f.now()
	raw, err := buildMIME(from, msg, now)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s-%03d-%s.eml", now.UTC().Format("20060102T150405"), f.seq.Add(1), unsafeName.ReplaceAllString(msg.To, "_"))
	return os.WriteFile(filepath.Join(f.dir, name), raw, 0o644)
}
