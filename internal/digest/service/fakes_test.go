package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
	evdomain "github.com/Shrey-sa/tree-tracker/internal/events/domain"
)

var testNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return time.Date(2024, 3, 10-n, 0, 0, 0, 0, time.UTC)
}

type fakeRepo struct {
	tasks []domain.TaskRecord
	trees []domain.TreeRecord
	staff []domain.Staff
	err   error

	recipientCalls int
	lastToday      time.Time
	lastCutoff     time.Time
}

func (f *fakeRepo) ListOverdueTasks(ctx context.Context, today time.Time) ([]domain.TaskRecord, error) {
	f.lastToday = today
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.TaskRecord
	for _, t := range f.tasks {
		if t.DueDate.Before(today) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListTreesDueForInspection(ctx context.Context, cutoff time.Time) ([]domain.TreeRecord, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.TreeRecord
	for _, t := range f.trees {
		if t.Health == "dead" {
			continue
		}
		if t.LastInspectedAt != nil && !t.LastInspectedAt.Before(cutoff) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepo) ListRecipients(ctx context.Context) ([]domain.Staff, error) {
	f.recipientCalls++
	var out []domain.Staff
	for _, s := range f.staff {
		if s.Role == domain.RoleAdmin || s.Role == domain.RoleSupervisor {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetStaff(ctx context.Context, id int64) (domain.Staff, error) {
	for _, s := range f.staff {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Staff{}, domain.ErrStaffNotFound
}

type captureSender struct {
	mu     sync.Mutex
	sent   []edomain.Message
	failTo map[string]error
}

func (c *captureSender) Send(ctx context.Context, msg edomain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.failTo[msg.To]; ok {
		return err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) to(addr string) (edomain.Message, bool) {
	for _, m := range c.sent {
		if m.To == addr {
			return m, true
		}
	}
	return edomain.Message{}, false
}

// slowSender blocks each send for delay or until ctx is done.
type slowSender struct {
	delay time.Duration
	mu    sync.Mutex
	sends int
}

func (s *slowSender) Send(ctx context.Context, msg edomain.Message) error {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.sends++
	s.mu.Unlock()
	return nil
}

func (s *slowSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

type capturePublisher struct{ events []evdomain.Event }

func (p *capturePublisher) Publish(ctx context.Context, e evdomain.Event) error {
	p.events = append(p.events, e)
	return nil
}

type busyLocker struct{}

func (busyLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, nil
}

type brokenLocker struct{}

func (brokenLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, errors.New("redis down")
}

type fakeSettings struct {
	ints      map[string]int
	durations map[string]time.Duration
}

func (f fakeSettings) GetString(ctx context.Context, key string, def string) (string, error) {
	return def, nil
}

func (f fakeSettings) GetInt(ctx context.Context, key string, def int) (int, error) {
	if v, ok := f.ints[key]; ok {
		return v, nil
	}
	return def, nil
}

func (f fakeSettings) GetDuration(ctx context.Context, key string, def time.Duration) (time.Duration, error) {
	if v, ok := f.durations[key]; ok {
		return v, nil
	}
	return def, nil
}

var (
	admin      = domain.Staff{ID: 1, Username: "mara", FirstName: "Mara", LastName: "Lind", Email: "mara@trees.org", Role: domain.RoleAdmin}
	supervisor = domain.Staff{ID: 2, Username: "sam", FirstName: "Sam", Email: "sam@trees.org", Role: domain.RoleSupervisor, ZoneIDs: []int64{1}}
	unzoned    = domain.Staff{ID: 3, Username: "zed", Email: "zed@trees.org", Role: domain.RoleSupervisor}
	worker     = domain.Staff{ID: 4, Username: "fin", Email: "fin@trees.org", Role: domain.RoleFieldWorker, ZoneIDs: []int64{1}}
)

func task(id int64, zone int64, zoneName string, due time.Time, priority string) domain.TaskRecord {
	return domain.TaskRecord{ID: id, Title: "Task " + string(rune('A'+id-1)), TaskType: "water", Priority: priority, ZoneID: zone, ZoneName: zoneName, DueDate: due}
}

func newTestService(repo *fakeRepo, sender edomain.Sender) *Service {
	s, err := New(repo, sender, nil, Options{
		AppURL: "https://trees.example.org",
		Now:    func() time.Time { return testNow },
	})
	if err != nil {
		panic(err)
	}
	return s
}
