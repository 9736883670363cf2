package digest

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	amw "github.com/Shrey-sa/tree-tracker/internal/auth/middleware"
	"github.com/Shrey-sa/tree-tracker/internal/config"
	ctrl "github.com/Shrey-sa/tree-tracker/internal/digest/controller"
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	repo "github.com/Shrey-sa/tree-tracker/internal/digest/repository"
	"github.com/Shrey-sa/tree-tracker/internal/digest/scheduler"
	svc "github.com/Shrey-sa/tree-tracker/internal/digest/service"
	emailsvc "github.com/Shrey-sa/tree-tracker/internal/email/service"
	evsvc "github.com/Shrey-sa/tree-tracker/internal/events/service"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
	rl "github.com/Shrey-sa/tree-tracker/internal/platform/ratelimit"
	"github.com/Shrey-sa/tree-tracker/internal/platform/runlock"
	"github.com/Shrey-sa/tree-tracker/internal/settings"
	sctrl "github.com/Shrey-sa/tree-tracker/internal/settings/controller"
)

// Registrar owns the wired digest slice: dispatcher, HTTP routes, the admin
// settings routes and the optional in-process scheduler.
type Registrar struct {
	Service   *svc.Service
	ctrl      *ctrl.Controller
	settings  *sctrl.Controller
	scheduler *scheduler.Scheduler
}

// NewRegistrar wires the digest pipeline against the given store. rc may be
// nil, in which case run locks and rate limits stay process-local.
func NewRegistrar(h *database.Handle, rc *redis.Client, cfg config.Config, log zerolog.Logger) (*Registrar, error) {
	st := settings.New(h)
	sender := emailsvc.NewRouter(st, cfg.Mail)

	records := repo.New(h)
	s, err := svc.New(records, sender, st, svc.Options{
		AppURL:           cfg.AppURL,
		Location:         cfg.Location(),
		OverdueRowCap:    cfg.DigestOverdueRowCap,
		InspectionRowCap: cfg.DigestInspectionRowCap,
		InspectionWindow: cfg.DigestInspectionWindow,
		SendRatePerSec:   cfg.DigestSendRatePerSec,
		LockTTL:          cfg.DigestLockTTL,
		RunTimeout:       cfg.DigestRunTimeout,
	})
	if err != nil {
		return nil, err
	}
	s.SetLogger(log)
	pub := evsvc.NewLogger(log)
	s.SetPublisher(pub)

	c := ctrl.New(s, cfg.CronSecretToken, cfg.JWTSigningKey)
	c.SetLogger(log)
	sc := sctrl.New(st).
		WithJWT(amw.NewJWT(cfg.JWTSigningKey)).
		WithPublisher(pub).
		WithRoleFetcher(func(ctx context.Context, staffID int64) (string, error) {
			staff, err := records.GetStaff(ctx, staffID)
			if err != nil {
				return "", err
			}
			return string(staff.Role), nil
		})
	if rc != nil {
		s.SetLocker(runlock.NewRedis(rc))
		store := rl.NewRedisStore(rc)
		c.SetRateLimitStore(store)
		sc.WithRateLimit(store)
	}

	r := &Registrar{Service: s, ctrl: c, settings: sc}
	if cfg.DigestSchedulerEnabled {
		sched := scheduler.New(s, cfg.Location())
		sched.SetLogger(log)
		if err := sched.Add(domain.ReportOverdue, cfg.DigestOverdueSchedule); err != nil {
			return nil, err
		}
		if err := sched.Add(domain.ReportInspection, cfg.DigestInspectionSchedule); err != nil {
			return nil, err
		}
		r.scheduler = sched
	}
	return r, nil
}

// Register mounts the cron triggers, the digest preview and the admin
// settings endpoints.
func (r *Registrar) Register(e *echo.Echo) {
	r.ctrl.Register(e)
	r.settings.Register(e)
}

// Drain waits for async runs accepted over HTTP. Call it after the server
// stops taking requests.
func (r *Registrar) Drain(ctx context.Context) error { return r.ctrl.Drain(ctx) }

// Scheduler is nil unless DIGEST_SCHEDULER_ENABLED is set.
func (r *Registrar) Scheduler() *scheduler.Scheduler { return r.scheduler }
