package controller

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	amw "github.com/Shrey-sa/tree-tracker/internal/auth/middleware"
	evdomain "github.com/Shrey-sa/tree-tracker/internal/events/domain"
	rl "github.com/Shrey-sa/tree-tracker/internal/platform/ratelimit"
	sdomain "github.com/Shrey-sa/tree-tracker/internal/settings/domain"
)

// Editor reads and validates runtime overrides.
type Editor interface {
	GetString(ctx context.Context, key string, def string) (string, error)
	Validate(key, value string) error
	Set(ctx context.Context, key, value string) error
}

// Controller exposes the runtime settings to admins. Only the keys in
// sdomain.Keys are readable or writable.
type Controller struct {
	svc Editor
	// Injected concerns
	jwtMW   echo.MiddlewareFunc
	rlStore rl.Store
	pub     evdomain.Publisher
	roleOf  func(ctx context.Context, staffID int64) (string, error)
	now     func() time.Time
}

func New(svc Editor) *Controller {
	return &Controller{svc: svc, now: time.Now}
}

// WithJWT injects a JWT middleware for these endpoints.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

// WithRateLimit injects a shared Store for distributed rate limiting.
func (h *Controller) WithRateLimit(store rl.Store) *Controller { h.rlStore = store; return h }

// WithPublisher injects an audit event publisher.
func (h *Controller) WithPublisher(p evdomain.Publisher) *Controller { h.pub = p; return h }

// WithRoleFetcher injects the staff role lookup. Without one every caller
// is refused.
func (h *Controller) WithRoleFetcher(fn func(ctx context.Context, staffID int64) (string, error)) *Controller {
	h.roleOf = fn
	return h
}

// Register mounts GET/PUT /api/v1/settings. Defaults: GET 60/min, PUT 10/min.
func (h *Controller) Register(e *echo.Echo) {
	getPolicy := rl.Policy{Name: "settings:get", Window: time.Minute, Limit: 60, Key: rl.KeyStaffOrIP("settings:get", amw.CtxStaffIDKey)}
	putPolicy := rl.Policy{Name: "settings:put", Window: time.Minute, Limit: 10, Key: rl.KeyStaffOrIP("settings:put", amw.CtxStaffIDKey)}

	store := h.rlStore
	if store == nil {
		store = rl.NewMemoryStore()
	}
	getMW := []echo.MiddlewareFunc{}
	putMW := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		getMW = append(getMW, h.jwtMW)
		putMW = append(putMW, h.jwtMW)
	}
	getMW = append(getMW, rl.MiddlewareWithStore(getPolicy, store))
	putMW = append(putMW, rl.MiddlewareWithStore(putPolicy, store))

	e.GET("/api/v1/settings", h.getSettings, getMW...)
	e.PUT("/api/v1/settings", h.putSettings, putMW...)
}

// requireAdmin writes the refusal and returns false unless the caller is an admin.
func (h *Controller) requireAdmin(c echo.Context) (int64, bool) {
	staffID, ok := amw.StaffID(c)
	if !ok {
		_ = c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return 0, false
	}
	if h.roleOf == nil {
		_ = c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		return 0, false
	}
	role, err := h.roleOf(c.Request().Context(), staffID)
	if err != nil || role != "admin" {
		_ = c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		return 0, false
	}
	return staffID, true
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// Get Settings godoc
// @Summary      Get runtime settings
// @Description  Returns the stored runtime overrides. Keys without an override are empty.
// @Tags         settings
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/settings [get]
func (h *Controller) getSettings(c echo.Context) error {
	if _, ok := h.requireAdmin(c); !ok {
		return nil
	}
	ctx := c.Request().Context()
	out := make(map[string]string, len(sdomain.Keys))
	for _, k := range sdomain.Keys {
		v, err := h.svc.GetString(ctx, k, "")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		if sdomain.IsSecretKey(k) {
			v = mask(v)
		}
		out[k] = v
	}
	return c.JSON(http.StatusOK, out)
}

// Put Settings godoc
// @Summary      Upsert runtime settings
// @Description  Stores overrides for known keys. The whole body is validated before anything is written.
// @Tags         settings
// @Accept       json
// @Param        body  body  map[string]string  true  "key to value"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      429  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/settings [put]
func (h *Controller) putSettings(c echo.Context) error {
	staffID, ok := h.requireAdmin(c)
	if !ok {
		return nil
	}
	var req map[string]string
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if len(req) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no settings given"})
	}
	keys := make([]string, 0, len(req))
	for k, v := range req {
		if err := h.svc.Validate(k, v); err != nil {
			if errors.Is(err, sdomain.ErrUnknownKey) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown setting " + strconv.Quote(k)})
			}
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx := c.Request().Context()
	for _, k := range keys {
		if err := h.svc.Set(ctx, k, req[k]); err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
	if h.pub != nil {
		_ = h.pub.Publish(ctx, evdomain.Event{
			Type: "settings.update.success",
			Meta: map[string]string{"changed": strings.Join(keys, ","), "staff_id": strconv.FormatInt(staffID, 10)},
			Time: h.now(),
		})
	}
	return c.NoContent(http.StatusNoContent)
}
