package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	"github.com/Shrey-sa/tree-tracker/internal/digest"
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	edomain "github.com/Shrey-sa/tree-tracker/internal/email/domain"
	emailsvc "github.com/Shrey-sa/tree-tracker/internal/email/service"
	"github.com/Shrey-sa/tree-tracker/internal/logger"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
	"github.com/Shrey-sa/tree-tracker/internal/settings"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitMigrate = 4
	exitRun     = 5
)

var (
	migrateRunner = realMigrateRunner
	digestRunner  = realDigestRunner
	osExit        = os.Exit
)

func handleCLICommand(args []string) bool {
	if len(args) == 0 {
		return false
	}
	var code int
	switch args[0] {
	case "migrate":
		code = runMigrate(args[1:])
	case "digest":
		code = runDigest(args[1:])
	case "send-test-email":
		code = runSendTestEmail(args[1:])
	case "settings":
		code = runSettings(args[1:])
	case "help", "-h", "--help":
		printHelp()
	default:
		return false
	}
	osExit(code)
	return true
}

func runMigrate(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "missing migrate subcommand (up|down|status)")
		return exitUsage
	}
	subcmd := args[0]
	switch subcmd {
	case "up", "down", "status":
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate subcommand: %s\n", subcmd)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if migrateRunner == nil {
		migrateRunner = realMigrateRunner
	}

	if err := migrateRunner(subcmd, cfg.DatabaseURL); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", subcmd, err)
		return exitMigrate
	}

	return exitOK
}

func realMigrateRunner(subcmd, databaseURL string) error {
	ctx := context.Background()
	h, err := database.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer h.Close()
	return database.Migrate(ctx, h, subcmd)
}

// runDigest runs one digest in the foreground, for external schedulers that
// prefer a process over an HTTP call.
func runDigest(args []string) int {
	if len(args) != 2 || args[0] != "run" {
		fmt.Fprintln(os.Stderr, "usage: digest run <overdue-alerts|inspection-reminders>")
		return exitUsage
	}
	report, err := domain.ParseReport(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	if digestRunner == nil {
		digestRunner = realDigestRunner
	}
	sum, err := digestRunner(cfg, report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "digest %s failed: %v\n", report, err)
		return exitRun
	}
	fmt.Println(sum.Result())
	for _, f := range sum.Failures {
		fmt.Fprintf(os.Stderr, "  failed %s: %s\n", f.Email, f.Reason)
	}
	return exitOK
}

func realDigestRunner(cfg config.Config, report domain.Report) (domain.RunSummary, error) {
	ctx := context.Background()
	h, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return domain.RunSummary{}, err
	}
	defer h.Close()

	r, err := digest.NewRegistrar(h, nil, cfg, logger.New(cfg.AppEnv, "tracker-digest"))
	if err != nil {
		return domain.RunSummary{}, err
	}
	return r.Service.Run(ctx, report)
}

func runSendTestEmail(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: send-test-email <address>")
		return exitUsage
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	h, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		return exitConfig
	}
	defer h.Close()

	router := emailsvc.NewRouter(settings.New(h), cfg.Mail)
	msg := edomain.Message{
		To:      args[0],
		Subject: "[Tree Tracker] Test email",
		Text:    "Mail delivery is configured correctly.",
		HTML:    "<p>Mail delivery is configured correctly.</p>",
		Tag:     "test",
	}
	if err := router.Send(ctx, msg); err != nil {
		fmt.Fprintf(os.Stderr, "send via %s failed: %v\n", router.Provider(ctx), err)
		return exitRun
	}
	fmt.Printf("sent test email to %s via %s\n", args[0], router.Provider(ctx))
	return exitOK
}

func runSettings(args []string) int {
	if len(args) != 3 || args[0] != "set" {
		fmt.Fprintln(os.Stderr, "usage: settings set <key> <value>")
		return exitUsage
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfig
	}
	ctx := context.Background()
	h, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database error: %v\n", err)
		return exitConfig
	}
	defer h.Close()

	if err := settings.New(h).Set(ctx, args[1], args[2]); err != nil {
		fmt.Fprintf(os.Stderr, "settings set failed: %v\n", err)
		return exitRun
	}
	fmt.Printf("%s updated\n", args[1])
	return exitOK
}

func printHelp() {
	fmt.Println("Tree Tracker API")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tracker-api                          Start API server")
	fmt.Println("  tracker-api migrate up               Apply all pending migrations")
	fmt.Println("  tracker-api migrate down             Roll back one migration")
	fmt.Println("  tracker-api migrate status           Show migration status")
	fmt.Println("  tracker-api digest run <report>      Run overdue-alerts or inspection-reminders now")
	fmt.Println("  tracker-api send-test-email <addr>   Send a test message via the configured transport")
	fmt.Println("  tracker-api settings set <key> <val> Store a runtime setting override")
}
