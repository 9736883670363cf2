package digest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amw "github.com/Shrey-sa/tree-tracker/internal/auth/middleware"
	"github.com/Shrey-sa/tree-tracker/internal/config"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database/dbtest"
	"github.com/Shrey-sa/tree-tracker/internal/platform/validation"
)

func testConfig() config.Config {
	return config.Config{
		AppURL:                   "http://localhost:5173",
		DigestTimezone:           "UTC",
		CronSecretToken:          "s3cret",
		JWTSigningKey:            "jwt",
		Mail:                     config.MailConfig{Provider: "file", From: "no-reply@trees.test"},
		DigestOverdueSchedule:    "0 8 * * *",
		DigestInspectionSchedule: "0 9 * * *",
	}
}

func TestRegistrar_EmptyStoreRunsEndToEnd(t *testing.T) {
	h := dbtest.NewSQLite(t)
	cfg := testConfig()
	cfg.Mail.DevDir = t.TempDir()

	r, err := NewRegistrar(h, nil, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, r.Scheduler())

	e := echo.New()
	e.Validator = validation.New()
	r.Register(e)

	req := httptest.NewRequest(http.MethodPost, "/cron/overdue-alerts", nil)
	req.Header.Set("X-Cron-Token", "s3cret")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "No overdue tasks found")
}

func TestRegistrar_SchedulerEnabled(t *testing.T) {
	cfg := testConfig()
	cfg.DigestSchedulerEnabled = true

	r, err := NewRegistrar(dbtest.NewSQLite(t), nil, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, r.Scheduler())

	cfg.DigestOverdueSchedule = "not a schedule"
	_, err = NewRegistrar(dbtest.NewSQLite(t), nil, cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestRegistrar_AdminUpdatesSettings(t *testing.T) {
	h := dbtest.NewSQLite(t)
	h.SQLite.MustExec(`INSERT INTO users (id, username, first_name, last_name, email, role) VALUES
		(1, 'mara', 'Mara', 'Admin', 'mara@trees.org', 'admin'),
		(2, 'sam', 'Sam', '', 'sam@trees.org', 'supervisor')`)
	cfg := testConfig()

	r, err := NewRegistrar(h, nil, cfg, zerolog.Nop())
	require.NoError(t, err)
	e := echo.New()
	e.Validator = validation.New()
	r.Register(e)

	put := func(staffID int64, body string) int {
		tok, err := amw.MintStaffToken(cfg.JWTSigningKey, staffID, time.Hour, time.Now())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, put(2, `{"digest.overdue.row_cap":"5"}`))
	require.Equal(t, http.StatusNoContent, put(1, `{"digest.overdue.row_cap":"5"}`))

	var stored string
	require.NoError(t, h.SQLite.Get(&stored, `SELECT value FROM app_settings WHERE key = 'digest.overdue.row_cap'`))
	assert.Equal(t, "5", stored)
}
