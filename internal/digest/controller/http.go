package controller

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	amw "github.com/Shrey-sa/tree-tracker/internal/auth/middleware"
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	"github.com/Shrey-sa/tree-tracker/internal/metrics"
	"github.com/Shrey-sa/tree-tracker/internal/platform/ratelimit"
	"github.com/Shrey-sa/tree-tracker/internal/platform/validation"
)

type Controller struct {
	svc        domain.Service
	cronSecret string
	jwtKey     string
	log        zerolog.Logger
	rl         ratelimit.Store
	// async starts a detached run; replaced in tests.
	async func(fn func())
	// inflight counts accepted async runs until they finish.
	inflight sync.WaitGroup
}

func New(svc domain.Service, cronSecret, jwtKey string) *Controller {
	return &Controller{
		svc:        svc,
		cronSecret: cronSecret,
		jwtKey:     jwtKey,
		log:        zerolog.Nop(),
		rl:         ratelimit.NewMemoryStore(),
		async:      func(fn func()) { go fn() },
	}
}

// SetLogger sets the logger used for detached runs.
func (h *Controller) SetLogger(l zerolog.Logger) { h.log = l }

// SetRateLimitStore swaps the in-memory limiter store, e.g. for Redis.
func (h *Controller) SetRateLimitStore(s ratelimit.Store) { h.rl = s }

// Drain waits for accepted async runs to finish, or for ctx to be done.
func (h *Controller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Controller) Register(e *echo.Echo) {
	for _, report := range domain.Reports {
		name := "cron:" + string(report)
		e.POST("/cron/"+string(report), h.trigger(report),
			ratelimit.MiddlewareWithStore(ratelimit.Policy{Name: name, Window: time.Minute, Limit: 10, Key: ratelimit.KeyIP(name)}, h.rl))
	}

	g := e.Group("/api/v1")
	g.GET("/digests/:report/preview", h.preview,
		amw.NewJWT(h.jwtKey),
		ratelimit.MiddlewareWithStore(ratelimit.Policy{Name: "digest:preview", Window: time.Minute, Limit: 30, Key: ratelimit.KeyStaffOrIP("digest:preview", amw.CtxStaffIDKey)}, h.rl))
}

type triggerResp struct {
	Status  string             `json:"status"`
	Result  string             `json:"result,omitempty"`
	Message string             `json:"message,omitempty"`
	RunID   string             `json:"run_id,omitempty"`
	Summary *domain.RunSummary `json:"summary,omitempty"`
}

// authorized compares the caller's token in constant time. An empty
// configured secret never matches.
func (h *Controller) authorized(c echo.Context) bool {
	if h.cronSecret == "" {
		return false
	}
	token := c.Request().Header.Get("X-Cron-Token")
	if token == "" {
		token = c.QueryParam("token")
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// Trigger digest godoc
// @Summary      Run a digest
// @Description  Runs the overdue-alerts or inspection-reminders digest. Guarded by X-Cron-Token or ?token=.
// @Tags         cron
// @Produce      json
// @Param        X-Cron-Token  header  string  false  "shared secret"
// @Param        token         query   string  false  "shared secret"
// @Param        mode          query   string  false  "sync (default) or async"
// @Success      200  {object}  triggerResp
// @Success      202  {object}  triggerResp
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  triggerResp
// @Failure      500  {object}  triggerResp
// @Router       /cron/overdue-alerts [post]
// @Router       /cron/inspection-reminders [post]
func (h *Controller) trigger(report domain.Report) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.authorized(c) {
			metrics.IncCronUnauthorized(string(report))
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		// The run outlives a caller that hangs up or times out.
		ctx := context.WithoutCancel(c.Request().Context())

		if c.QueryParam("mode") == "async" {
			h.inflight.Add(1)
			h.async(func() {
				defer h.inflight.Done()
				sum, err := h.svc.Run(ctx, report)
				switch {
				case errors.Is(err, domain.ErrRunInProgress):
					h.log.Info().Str("report", string(report)).Msg("async digest skipped: run in progress")
				case err != nil:
					h.log.Error().Err(err).Str("report", string(report)).Msg("async digest run failed")
				default:
					h.log.Info().Str("report", string(report)).Str("run_id", sum.RunID.String()).Str("result", sum.Result()).Msg("async digest finished")
				}
			})
			return c.JSON(http.StatusAccepted, triggerResp{Status: "accepted", Result: fmt.Sprintf("%s digest queued", report)})
		}

		sum, err := h.svc.Run(ctx, report)
		switch {
		case errors.Is(err, domain.ErrRunInProgress):
			return c.JSON(http.StatusConflict, triggerResp{Status: "error", Message: err.Error()})
		case err != nil:
			return c.JSON(http.StatusInternalServerError, triggerResp{Status: "error", Message: err.Error()})
		}
		return c.JSON(http.StatusOK, triggerResp{Status: "success", Result: sum.Result(), RunID: sum.RunID.String(), Summary: &sum})
	}
}

type previewReq struct {
	Report string `param:"report" validate:"required"`
	Format string `query:"format" validate:"omitempty,oneof=json html text"`
}

type rowResp struct {
	ID              int64   `json:"id"`
	Zone            string  `json:"zone"`
	Label           string  `json:"label"`
	Level           string  `json:"level"`
	Owner           string  `json:"owner"`
	DueDate         string  `json:"due_date,omitempty"`
	LastInspectedAt *string `json:"last_inspected_at,omitempty"`
	Staleness       string  `json:"staleness"`
}

type previewResp struct {
	Report      string    `json:"report"`
	Recipient   string    `json:"recipient"`
	Subject     string    `json:"subject"`
	Total       int       `json:"total"`
	Shown       int       `json:"shown"`
	Rows        []rowResp `json:"rows"`
	GeneratedAt string    `json:"generated_at"`
}

func toRowResp(r domain.Row) rowResp {
	out := rowResp{ID: r.ID, Zone: r.ZoneName, Label: r.Label, Level: r.Level, Owner: r.Owner, Staleness: r.Staleness.String()}
	if !r.DueDate.IsZero() {
		out.DueDate = r.DueDate.Format("2006-01-02")
	}
	if r.LastInspectedAt != nil {
		s := r.LastInspectedAt.UTC().Format(time.RFC3339)
		out.LastInspectedAt = &s
	}
	return out
}

// Preview digest godoc
// @Summary      Preview my digest
// @Description  Renders the digest the authenticated staff member would receive now, without sending it.
// @Tags         digests
// @Security     BearerAuth
// @Produce      json
// @Produce      html
// @Produce      plain
// @Param        report  path   string  true   "overdue-alerts | inspection-reminders"
// @Param        format  query  string  false  "json (default) | html | text"
// @Success      200  {object}  previewResp
// @Failure      400  {object}  validation.ErrorBody
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/digests/{report}/preview [get]
func (h *Controller) preview(c echo.Context) error {
	var req previewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	report, err := domain.ParseReport(req.Report)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown report"})
	}
	staffID, ok := amw.StaffID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}

	p, err := h.svc.Preview(c.Request().Context(), report, staffID)
	switch {
	case errors.Is(err, domain.ErrNotRecipient):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "not a digest recipient"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	switch req.Format {
	case "html":
		return c.HTML(http.StatusOK, p.HTML)
	case "text":
		return c.String(http.StatusOK, p.Text)
	}
	resp := previewResp{
		Report:      string(report),
		Recipient:   p.Digest.Recipient.Staff.Email,
		Subject:     p.Subject,
		Total:       p.Digest.Total,
		Shown:       len(p.Digest.Rows),
		Rows:        make([]rowResp, 0, len(p.Digest.Rows)),
		GeneratedAt: p.Digest.AsOf.UTC().Format(time.RFC3339),
	}
	for _, r := range p.Digest.Rows {
		resp.Rows = append(resp.Rows, toRowResp(r))
	}
	return c.JSON(http.StatusOK, resp)
}
