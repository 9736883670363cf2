package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
	evdomain "github.com/Shrey-sa/tree-tracker/internal/events/domain"
	evsvc "github.com/Shrey-sa/tree-tracker/internal/events/service"
	"github.com/Shrey-sa/tree-tracker/internal/metrics"
	"github.com/Shrey-sa/tree-tracker/internal/platform/runlock"
	sdomain "github.com/Shrey-sa/tree-tracker/internal/settings/domain"
)

// Options is the explicit configuration of the pipeline. Nothing else is
// read from the environment.
type Options struct {
	// From overrides the transport's sender address when set.
	From             string
	AppURL           string
	Location         *time.Location
	OverdueRowCap    int
	InspectionRowCap int
	InspectionWindow time.Duration
	// SendRatePerSec throttles deliveries within a run; 0 disables.
	SendRatePerSec int
	// LockTTL bounds how long a crashed run blocks the next one; a live run
	// keeps renewing its lock.
	LockTTL time.Duration
	// RunTimeout caps one run regardless of the caller's context.
	RunTimeout time.Duration
	Now        func() time.Time
}

func (o *Options) defaults() {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.OverdueRowCap <= 0 {
		o.OverdueRowCap = 30
	}
	if o.InspectionRowCap <= 0 {
		o.InspectionRowCap = 20
	}
	if o.InspectionWindow <= 0 {
		o.InspectionWindow = 14 * day
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Minute
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = 15 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Ensure Service implements domain.Service
var _ domain.Service = (*Service)(nil)

// Service is the digest dispatcher: aggregate, resolve, scope, render, send.
type Service struct {
	repo     domain.Repository
	resolver *Resolver
	agg      *Aggregator
	renderer *Renderer
	sender   edomain.Sender
	settings sdomain.Service
	locker   domain.Locker
	pub      evdomain.Publisher
	log      zerolog.Logger
	limiter  *rate.Limiter
	opts     Options
}

// New builds the dispatcher. settings may be nil, in which case Options alone
// decide row caps and the inspection window.
func New(repo domain.Repository, sender edomain.Sender, settings sdomain.Service, opts Options) (*Service, error) {
	opts.defaults()
	r, err := NewRenderer(opts.AppURL, opts.Location)
	if err != nil {
		return nil, err
	}
	s := &Service{
		repo:     repo,
		resolver: NewResolver(repo),
		agg:      NewAggregator(repo, opts.Location),
		renderer: r,
		sender:   sender,
		settings: settings,
		locker:   runlock.NewMemory(),
		pub:      evsvc.NewLogger(zerolog.Nop()),
		log:      zerolog.Nop(),
		opts:     opts,
	}
	if opts.SendRatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.SendRatePerSec), 1)
	}
	return s, nil
}

// SetPublisher allows tests or callers to override the event publisher.
func (s *Service) SetPublisher(p evdomain.Publisher) { s.pub = p }

// SetLogger sets the structured logger used for run and delivery logs.
func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// SetLocker replaces the process-local run lock, e.g. with a Redis one.
func (s *Service) SetLocker(l domain.Locker) { s.locker = l }

// limits resolves the row cap and inspection window, letting runtime
// settings override the configured values.
func (s *Service) limits(ctx context.Context, report domain.Report) (rowCap int, window time.Duration) {
	rowCap, window = s.opts.OverdueRowCap, s.opts.InspectionWindow
	key := sdomain.KeyOverdueRowCap
	if report == domain.ReportInspection {
		rowCap, key = s.opts.InspectionRowCap, sdomain.KeyInspectionRowCap
	}
	if s.settings == nil {
		return rowCap, window
	}
	if v, err := s.settings.GetInt(ctx, key, rowCap); err == nil && v > 0 {
		rowCap = v
	}
	if report == domain.ReportInspection {
		if v, err := s.settings.GetDuration(ctx, sdomain.KeyInspectionWindow, window); err == nil {
			window = v
		}
	}
	return rowCap, window
}

// Run executes one digest run. Only lock contention and store failures
// return an error; delivery failures are recorded in the summary.
func (s *Service) Run(ctx context.Context, report domain.Report) (domain.RunSummary, error) {
	report, err := domain.ParseReport(string(report))
	if err != nil {
		return domain.RunSummary{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	sum := domain.RunSummary{RunID: uuid.New(), Report: report, StartedAt: s.opts.Now()}
	log := s.log.With().Str("run_id", sum.RunID.String()).Str("report", string(report)).Logger()

	release, ok, err := s.locker.Acquire(ctx, "digest:"+string(report), s.opts.LockTTL)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("run lock unavailable, continuing without it")
	case !ok:
		metrics.ObserveDigestRun(string(report), "locked", 0)
		log.Warn().Msg("digest run already in progress")
		return sum, domain.ErrRunInProgress
	default:
		defer release()
	}

	rowCap, window := s.limits(ctx, report)

	log.Debug().Msg("aggregating")
	snap, err := s.agg.Snapshot(ctx, report, sum.StartedAt, window)
	if err != nil {
		return s.fail(ctx, log, sum, err)
	}
	sum.Records = len(snap.Rows)
	if len(snap.Rows) == 0 {
		sum.Status = domain.RunNothingToSend
		return s.finish(ctx, log, sum), nil
	}

	log.Debug().Int("records", sum.Records).Msg("resolving recipients")
	recipients, err := s.resolver.Resolve(ctx)
	if err != nil {
		return s.fail(ctx, log, sum, err)
	}
	sum.Recipients = len(recipients)

	for _, rcp := range recipients {
		d := Scope(snap, rcp, rowCap)
		if d.Total == 0 {
			sum.Skipped++
			continue
		}
		sum.Attempted++
		if err := s.deliver(ctx, d); err != nil {
			log.Error().Err(err).Int64("staff_id", rcp.Staff.ID).Str("email", rcp.Staff.Email).Msg("digest delivery failed")
			sum.Failures = append(sum.Failures, domain.DeliveryFailure{StaffID: rcp.Staff.ID, Email: rcp.Staff.Email, Reason: err.Error()})
			continue
		}
		sum.Sent++
	}
	sum.Status = domain.RunCompleted
	return s.finish(ctx, log, sum), nil
}

func (s *Service) deliver(ctx context.Context, d domain.Digest) (err error) {
	// Transport panics count as delivery failures.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transport panic: %v", r)
		}
	}()
	msg, err := s.renderer.Render(d)
	if err != nil {
		return err
	}
	if s.opts.From != "" {
		msg.From = s.opts.From
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return s.sender.Send(ctx, msg)
}

func (s *Service) finish(ctx context.Context, log zerolog.Logger, sum domain.RunSummary) domain.RunSummary {
	sum.FinishedAt = s.opts.Now()
	metrics.ObserveDigestRun(string(sum.Report), string(sum.Status), sum.FinishedAt.Sub(sum.StartedAt))
	metrics.AddDigestEmails(string(sum.Report), sum.Sent, len(sum.Failures))
	log.Info().
		Str("status", string(sum.Status)).
		Int("records", sum.Records).
		Int("recipients", sum.Recipients).
		Int("attempted", sum.Attempted).
		Int("sent", sum.Sent).
		Int("skipped", sum.Skipped).
		Int("failed", len(sum.Failures)).
		Msg(sum.Result())
	_ = s.pub.Publish(ctx, evdomain.Event{
		Type: "digest.run.completed",
		Meta: map[string]string{
			"run_id":    sum.RunID.String(),
			"report":    string(sum.Report),
			"status":    string(sum.Status),
			"attempted": strconv.Itoa(sum.Attempted),
			"sent":      strconv.Itoa(sum.Sent),
			"result":    sum.Result(),
		},
		Time: sum.FinishedAt,
	})
	return sum
}

func (s *Service) fail(ctx context.Context, log zerolog.Logger, sum domain.RunSummary, err error) (domain.RunSummary, error) {
	sum.FinishedAt = s.opts.Now()
	metrics.ObserveDigestRun(string(sum.Report), "failed", sum.FinishedAt.Sub(sum.StartedAt))
	log.Error().Err(err).Msg("digest run failed")
	_ = s.pub.Publish(ctx, evdomain.Event{
		Type: "digest.run.failed",
		Meta: map[string]string{"run_id": sum.RunID.String(), "report": string(sum.Report), "error": err.Error()},
		Time: sum.FinishedAt,
	})
	return sum, err
}

// Preview renders the digest staffID would receive now, without sending it.
func (s *Service) Preview(ctx context.Context, report domain.Report, staffID int64) (domain.Preview, error) {
	report, err := domain.ParseReport(string(report))
	if err != nil {
		return domain.Preview{}, err
	}
	staff, err := s.repo.GetStaff(ctx, staffID)
	if err != nil {
		if errors.Is(err, domain.ErrStaffNotFound) {
			return domain.Preview{}, domain.ErrNotRecipient
		}
		return domain.Preview{}, fmt.Errorf("get staff %d: %w", staffID, err)
	}
	rcp, ok := RecipientFor(staff)
	if !ok {
		return domain.Preview{}, domain.ErrNotRecipient
	}
	rowCap, window := s.limits(ctx, report)
	snap, err := s.agg.Snapshot(ctx, report, s.opts.Now(), window)
	if err != nil {
		return domain.Preview{}, err
	}
	d := Scope(snap, rcp, rowCap)
	msg, err := s.renderer.Render(d)
	if err != nil {
		return domain.Preview{}, err
	}
	return domain.Preview{Digest: d, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text}, nil
}
