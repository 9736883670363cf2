package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
)

// sqliteURL points DATABASE_URL at a fresh file-backed store and returns it.
func sqliteURL(t *testing.T) string {
	t.Helper()
	url := "sqlite://" + filepath.Join(t.TempDir(), "tracker.db")
	t.Setenv("DATABASE_URL", url)
	return url
}

// migratedSQLite is sqliteURL with every migration applied.
func migratedSQLite(t *testing.T) string {
	t.Helper()
	url := sqliteURL(t)
	require.NoError(t, realMigrateRunner("up", url))
	return url
}

func hasTable(t *testing.T, url, table string) bool {
	t.Helper()
	h, err := database.Open(context.Background(), url)
	require.NoError(t, err)
	defer h.Close()
	var n int
	require.NoError(t, h.SQLite.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table))
	return n == 1
}

// captureExit replaces osExit for the test and returns the recorded codes.
func captureExit(t *testing.T) *[]int {
	t.Helper()
	orig := osExit
	t.Cleanup(func() { osExit = orig })
	var codes []int
	osExit = func(code int) { codes = append(codes, code) }
	return &codes
}

func stubMigrateRunner(t *testing.T, fn func(subcmd, databaseURL string) error) {
	t.Helper()
	orig := migrateRunner
	t.Cleanup(func() { migrateRunner = orig })
	migrateRunner = fn
}

func TestRunMigrate_PassesSubcommandAndURL(t *testing.T) {
	url := sqliteURL(t)
	var gotSub, gotURL string
	stubMigrateRunner(t, func(subcmd, databaseURL string) error {
		gotSub, gotURL = subcmd, databaseURL
		return nil
	})

	for _, sub := range []string{"up", "down", "status"} {
		assert.Equal(t, exitOK, runMigrate([]string{sub}), sub)
		assert.Equal(t, sub, gotSub)
		assert.Equal(t, url, gotURL)
	}
}

func TestRunMigrate_ExitCodes(t *testing.T) {
	sqliteURL(t)
	stubMigrateRunner(t, func(string, string) error { return errors.New("locked") })

	cases := map[string]struct {
		args []string
		want int
	}{
		"missing subcommand": {nil, exitUsage},
		"unknown subcommand": {[]string{"redo"}, exitUsage},
		"runner failure":     {[]string{"up"}, exitMigrate},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, runMigrate(tc.args))
		})
	}
}

func TestRunMigrate_InvalidTimezoneIsConfigError(t *testing.T) {
	sqliteURL(t)
	t.Setenv("DIGEST_TIMEZONE", "Mars/Olympus")
	stubMigrateRunner(t, func(string, string) error {
		t.Fatal("runner must not run without a valid config")
		return nil
	})

	assert.Equal(t, exitConfig, runMigrate([]string{"up"}))
}

func TestRealMigrateRunner_SQLiteUpStatusDown(t *testing.T) {
	url := sqliteURL(t)

	require.NoError(t, realMigrateRunner("up", url))
	assert.True(t, hasTable(t, url, "maintenance_tasks"))
	assert.True(t, hasTable(t, url, "app_settings"))

	require.NoError(t, realMigrateRunner("status", url))

	require.NoError(t, realMigrateRunner("down", url))
	assert.False(t, hasTable(t, url, "app_settings"), "down rolls back the latest migration")
	assert.True(t, hasTable(t, url, "maintenance_tasks"))
}

func TestRealMigrateRunner_BadURL(t *testing.T) {
	assert.Error(t, realMigrateRunner("up", ""))
	assert.Error(t, realMigrateRunner("up", "mysql://nope"))
}

func TestHandleCLICommand_NotACommand(t *testing.T) {
	codes := captureExit(t)

	assert.False(t, handleCLICommand(nil))
	assert.False(t, handleCLICommand([]string{"serve"}))
	assert.Empty(t, *codes, "the server path must not exit")
}

func TestHandleCLICommand_MigrateAgainstSQLite(t *testing.T) {
	url := sqliteURL(t)
	codes := captureExit(t)

	require.True(t, handleCLICommand([]string{"migrate", "up"}))
	assert.Equal(t, []int{exitOK}, *codes)
	assert.True(t, hasTable(t, url, "trees"))
}

func TestHandleCLICommand_HelpExitsOK(t *testing.T) {
	for _, arg := range []string{"help", "-h", "--help"} {
		codes := captureExit(t)
		require.True(t, handleCLICommand([]string{arg}), arg)
		assert.Equal(t, []int{exitOK}, *codes, arg)
	}
}

func TestRunDigest_Usage(t *testing.T) {
	assert.Equal(t, exitUsage, runDigest(nil))
	assert.Equal(t, exitUsage, runDigest([]string{"run"}))
	assert.Equal(t, exitUsage, runDigest([]string{"run", "weekly"}), "unknown report")
}

func TestRunDigest_CallsRunner(t *testing.T) {
	sqliteURL(t)
	orig := digestRunner
	t.Cleanup(func() { digestRunner = orig })

	var got domain.Report
	digestRunner = func(cfg config.Config, report domain.Report) (domain.RunSummary, error) {
		got = report
		return domain.RunSummary{Report: report, Status: domain.RunCompleted, Attempted: 1, Sent: 1}, nil
	}
	assert.Equal(t, exitOK, runDigest([]string{"run", "Inspection-Reminders"}))
	assert.Equal(t, domain.ReportInspection, got)

	digestRunner = func(config.Config, domain.Report) (domain.RunSummary, error) {
		return domain.RunSummary{}, domain.ErrRunInProgress
	}
	assert.Equal(t, exitRun, runDigest([]string{"run", "overdue-alerts"}))
}

func TestRunSettings(t *testing.T) {
	migratedSQLite(t)

	assert.Equal(t, exitUsage, runSettings([]string{"set", "digest.overdue.row_cap"}))
	assert.Equal(t, exitOK, runSettings([]string{"set", "digest.overdue.row_cap", "10"}))
	assert.Equal(t, exitRun, runSettings([]string{"set", "digest.weekly", "on"}), "unknown key")
}

func TestRunSendTestEmail_FileTransport(t *testing.T) {
	migratedSQLite(t)
	dir := t.TempDir()
	t.Setenv("EMAIL_PROVIDER", "file")
	t.Setenv("MAIL_DEV_DIR", dir)

	require.Equal(t, exitOK, runSendTestEmail([]string{"ops@trees.example.org"}))
	files, err := filepath.Glob(filepath.Join(dir, "*.eml"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRealDigestRunner_EmptyStore(t *testing.T) {
	migratedSQLite(t)
	t.Setenv("APP_ENV", "test")
	cfg, err := config.Load()
	require.NoError(t, err)

	sum, err := realDigestRunner(cfg, domain.ReportOverdue)
	require.NoError(t, err)
	assert.Equal(t, domain.RunNothingToSend, sum.Status)
}
