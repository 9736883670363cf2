package domain

import (
	"context"
	"time"
)

// TaskRecord is an overdue maintenance task joined with its zone and assignee.
type TaskRecord struct {
	ID       int64
	Title    string
	TaskType string
	Priority string
	ZoneID   int64
	ZoneName string
	TreeID   *int64
	DueDate  time.Time // midnight UTC of the due date
	Assignee string    // display name; empty when unassigned
}

// TreeRecord is a tree lacking a recent health log, joined with zone and species.
type TreeRecord struct {
	ID              int64
	TagNumber       string
	Health          string
	ZoneID          int64
	ZoneName        string
	Species         string // common name; empty when unknown
	CreatedAt       time.Time
	LastInspectedAt *time.Time
}

// Repository reads the record store. Implementations never write.
type Repository interface {
	// ListOverdueTasks returns pending tasks due strictly before today,
	// ordered by due date, then priority (urgent first), then id.
	ListOverdueTasks(ctx context.Context, today time.Time) ([]TaskRecord, error)
	// ListTreesDueForInspection returns non-dead trees with no health log at
	// or after cutoff, newest trees first.
	ListTreesDueForInspection(ctx context.Context, cutoff time.Time) ([]TreeRecord, error)
	// ListRecipients returns admins and supervisors with a non-blank email,
	// ordered by id, with their zone affiliations.
	ListRecipients(ctx context.Context) ([]Staff, error)
	// GetStaff returns one staff member or ErrStaffNotFound.
	GetStaff(ctx context.Context, id int64) (Staff, error)
}

// Locker guards a report against overlapping runs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Preview is a rendered digest for one staff member, not sent.
type Preview struct {
	Digest  Digest
	Subject string
	HTML    string
	Text    string
}

// Service runs and previews digests.
type Service interface {
	Run(ctx context.Context, report Report) (RunSummary, error)
	Preview(ctx context.Context, report Report, staffID int64) (Preview, error)
}
