package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report identifies a digest type. The value doubles as the URL segment.
type Report string

const (
	ReportOverdue    Report = "overdue-alerts"
	ReportInspection Report = "inspection-reminders"
)

// Reports lists every report type in a stable order.
var Reports = []Report{ReportOverdue, ReportInspection}

// ParseReport maps a URL segment or CLI argument to a Report.
func ParseReport(s string) (Report, error) {
	r := Report(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Reports {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReport, s)
}

// Role is a staff member's role.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleSupervisor  Role = "supervisor"
	RoleFieldWorker Role = "field_worker"
)

// Staff is a staff member as read from users + staff_zones.
type Staff struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	ZoneIDs   []int64
}

// DisplayName is the full name, or the username when no name is set.
func (s Staff) DisplayName() string {
	return DisplayName(s.FirstName, s.LastName, s.Username)
}

// DisplayName joins first and last name, falling back to username.
func DisplayName(first, last, username string) string {
	full := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if full != "" {
		return full
	}
	return username
}

// Scope is the subset of records a recipient may see.
// The zero value sees nothing.
type Scope struct {
	all   bool
	zones map[int64]struct{}
}

// FullScope sees every record.
func FullScope() Scope { return Scope{all: true} }

// ZoneScope sees records whose zone is one of ids.
func ZoneScope(ids []int64) Scope {
	s := Scope{zones: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.zones[id] = struct{}{}
	}
	return s
}

func (s Scope) Allows(zoneID int64) bool {
	if s.all {
		return true
	}
	_, ok := s.zones[zoneID]
	return ok
}

// Empty reports whether no record can ever be in scope.
func (s Scope) Empty() bool { return !s.all && len(s.zones) == 0 }

// IsFull reports whether the scope is unfiltered.
func (s Scope) IsFull() bool { return s.all }

// ZoneIDs returns the affiliated zones in ascending order; nil for a full scope.
func (s Scope) ZoneIDs() []int64 {
	if s.all {
		return nil
	}
	ids := make([]int64, 0, len(s.zones))
	for id := range s.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Recipient is a staff member paired with their visibility.
type Recipient struct {
	Staff Staff
	Scope Scope
}

// Staleness is days overdue for tasks or days since last inspection for
// trees. Never marks a tree with no health log at all.
type Staleness struct {
	Days  int
	Never bool
}

// NeverInspected is the sentinel shown for trees with no health log.
const NeverInspected = "Never inspected"

func (s Staleness) String() string {
	if s.Never {
		return NeverInspected
	}
	if s.Days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", s.Days)
}

// Row is one detail line of a digest. For overdue tasks Label is the task
// title, Level the priority and Owner the assignee; for inspection reminders
// Label is the tree tag, Level the current health and Owner the species.
type Row struct {
	ID       int64
	ZoneID   int64
	ZoneName string
	Label    string
	Kind     string // task type; empty for trees
	Level    string
	Owner    string

	DueDate         time.Time  // overdue tasks only
	LastInspectedAt *time.Time // inspection reminders only; nil when never inspected

	Staleness Staleness
}

// Snapshot is the full, ordered record set of one report at one instant.
type Snapshot struct {
	Report Report
	AsOf   time.Time
	// Window is the inspection freshness window; zero for overdue tasks.
	Window time.Duration
	Rows   []Row
}

// Digest is a snapshot scoped to one recipient. Total counts every row in
// scope; Rows holds at most the configured cap.
type Digest struct {
	Report    Report
	Recipient Recipient
	Total     int
	Rows      []Row
	AsOf      time.Time
	Window    time.Duration
}

// Truncated reports whether rows were dropped by the cap.
func (d Digest) Truncated() bool { return d.Total > len(d.Rows) }

// RunStatus is the terminal state of a dispatcher run.
type RunStatus string

const (
	RunCompleted     RunStatus = "completed"
	RunNothingToSend RunStatus = "nothing_to_send"
)

// DeliveryFailure records why one recipient did not get their digest.
type DeliveryFailure struct {
	StaffID int64  `json:"staff_id"`
	Email   string `json:"email"`
	Reason  string `json:"reason"`
}

// RunSummary is the ephemeral result of one dispatcher run.
type RunSummary struct {
	RunID      uuid.UUID         `json:"run_id"`
	Report     Report            `json:"report"`
	Status     RunStatus         `json:"status"`
	Records    int               `json:"records"`
	Recipients int               `json:"recipients"`
	Attempted  int               `json:"attempted"`
	Sent       int               `json:"sent"`
	Skipped    int               `json:"skipped"`
	Failures   []DeliveryFailure `json:"failures,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Result is the human-readable outcome returned to trigger callers.
func (s RunSummary) Result() string {
	if s.Status == RunNothingToSend {
		if s.Report == ReportInspection {
			return "All trees recently inspected"
		}
		return "No overdue tasks found"
	}
	if s.Report == ReportInspection {
		return fmt.Sprintf("Sent %d of %d inspection reminder emails", s.Sent, s.Attempted)
	}
	return fmt.Sprintf("Sent %d of %d overdue task alert emails", s.Sent, s.Attempted)
}
