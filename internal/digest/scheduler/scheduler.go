// Package scheduler runs digests on in-process cron schedules, for
// deployments without an external cron caller.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
)

const defaultTimeout = 15 * time.Minute

type Scheduler struct {
	mu      sync.Mutex
	svc     domain.Service
	log     zerolog.Logger
	parser  cron.Parser
	c       *cron.Cron
	entries map[domain.Report]cron.EntryID
	timeout time.Duration
}

func New(svc domain.Service, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		svc:    svc,
		log:    zerolog.Nop(),
		parser: parser,
		c: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		entries: map[domain.Report]cron.EntryID{},
		timeout: defaultTimeout,
	}
}

func (s *Scheduler) SetLogger(l zerolog.Logger) { s.log = l }

// Add schedules report on spec. A blank spec leaves the report unscheduled;
// adding the same report twice replaces the earlier entry.
func (s *Scheduler) Add(report domain.Report, spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", report, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[report]; ok {
		s.c.Remove(id)
	}
	s.entries[report] = s.c.Schedule(sched, s.job(report))
	return nil
}

func (s *Scheduler) job(report domain.Report) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		sum, err := s.svc.Run(ctx, report)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			s.log.Info().Str("report", string(report)).Msg("scheduled digest skipped: run in progress")
		case err != nil:
			s.log.Error().Err(err).Str("report", string(report)).Msg("scheduled digest failed")
		default:
			s.log.Info().Str("report", string(report)).Str("result", sum.Result()).Msg("scheduled digest finished")
		}
	})
}

// Next reports when report fires next; zero if unscheduled or not started.
func (s *Scheduler) Next(report domain.Report) time.Time {
	s.mu.Lock()
	id, ok := s.entries[report]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.c.Entry(id).Next
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop prevents new runs and waits for in-flight ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
