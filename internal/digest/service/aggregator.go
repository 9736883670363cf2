package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
)

const day = 24 * time.Hour

// Aggregator queries the record store and reduces it per recipient.
type Aggregator struct {
	repo domain.Repository
	loc  *time.Location
}

func NewAggregator(repo domain.Repository, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{repo: repo, loc: loc}
}

// Today returns the calendar date of now in the digest timezone, as midnight UTC.
func (a *Aggregator) Today(now time.Time) time.Time {
	y, m, d := now.In(a.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Snapshot loads the full ordered record set for report at now. window is
// only used by inspection reminders.
func (a *Aggregator) Snapshot(ctx context.Context, report domain.Report, now time.Time, window time.Duration) (domain.Snapshot, error) {
	switch report {
	case domain.ReportOverdue:
		return a.overdue(ctx, now)
	case domain.ReportInspection:
		return a.inspection(ctx, now, window)
	default:
		return domain.Snapshot{}, fmt.Errorf("%w: %q", domain.ErrUnknownReport, report)
	}
}

func (a *Aggregator) overdue(ctx context.Context, now time.Time) (domain.Snapshot, error) {
	today := a.Today(now)
	tasks, err := a.repo.ListOverdueTasks(ctx, today)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list overdue tasks: %w", err)
	}
	snap := domain.Snapshot{Report: domain.ReportOverdue, AsOf: now, Rows: make([]domain.Row, 0, len(tasks))}
	for _, t := range tasks {
		owner := t.Assignee
		if owner == "" {
			owner = "Unassigned"
		}
		snap.Rows = append(snap.Rows, domain.Row{
			ID:        t.ID,
			ZoneID:    t.ZoneID,
			ZoneName:  t.ZoneName,
			Label:     t.Title,
			Kind:      t.TaskType,
			Level:     t.Priority,
			Owner:     owner,
			DueDate:   t.DueDate,
			Staleness: domain.Staleness{Days: int(today.Sub(t.DueDate) / day)},
		})
	}
	return snap, nil
}

func (a *Aggregator) inspection(ctx context.Context, now time.Time, window time.Duration) (domain.Snapshot, error) {
	trees, err := a.repo.ListTreesDueForInspection(ctx, now.Add(-window))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("list trees due for inspection: %w", err)
	}
	snap := domain.Snapshot{Report: domain.ReportInspection, AsOf: now, Window: window, Rows: make([]domain.Row, 0, len(trees))}
	for _, t := range trees {
		label := t.TagNumber
		if label == "" {
			label = fmt.Sprintf("TRK-%05d", t.ID)
		}
		species := t.Species
		if species == "" {
			species = "Unknown"
		}
		stale := domain.Staleness{Never: true}
		if t.LastInspectedAt != nil {
			stale = domain.Staleness{Days: int(now.Sub(*t.LastInspectedAt) / day)}
		}
		snap.Rows = append(snap.Rows, domain.Row{
			ID:              t.ID,
			ZoneID:          t.ZoneID,
			ZoneName:        t.ZoneName,
			Label:           label,
			Level:           t.Health,
			Owner:           species,
			LastInspectedAt: t.LastInspectedAt,
			Staleness:       stale,
		})
	}
	return snap, nil
}

// Scope filters snap to what rcp may see. Total counts every row in scope;
// at most rowCap rows are kept, in snapshot order. rowCap <= 0 keeps all.
func Scope(snap domain.Snapshot, rcp domain.Recipient, rowCap int) domain.Digest {
	d := domain.Digest{Report: snap.Report, Recipient: rcp, AsOf: snap.AsOf, Window: snap.Window}
	for _, row := range snap.Rows {
		if !rcp.Scope.Allows(row.ZoneID) {
			continue
		}
		d.Total++
		if rowCap <= 0 || len(d.Rows) < rowCap {
			d.Rows = append(d.Rows, row)
		}
	}
	return d
}
