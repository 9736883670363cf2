package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Shrey-sa/tree-tracker/internal/config"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	h, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		fatalf("open database: %v", err)
	}
	defer h.Close()
	st := newStore(h)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "demo":
		fs := flag.NewFlagSet("demo", flag.ExitOnError)
		domain := fs.String("email-domain", envOr("SEED_EMAIL_DOMAIN", "trees.local"), "domain for seeded staff addresses")
		_ = fs.Parse(os.Args[2:])

		ids, err := seedDemo(ctx, st, *domain, time.Now().UTC())
		if err != nil {
			fatalf("seed demo: %v", err)
		}
		printEnv(ids)
	case "staff":
		fs := flag.NewFlagSet("staff", flag.ExitOnError)
		username := fs.String("username", os.Getenv("STAFF_USERNAME"), "unique username")
		email := fs.String("email", os.Getenv("STAFF_EMAIL"), "email address (blank for none)")
		first := fs.String("first", envOr("FIRST_NAME", ""), "first name")
		last := fs.String("last", envOr("LAST_NAME", ""), "last name")
		role := fs.String("role", envOr("STAFF_ROLE", "field_worker"), "admin | supervisor | field_worker")
		zonesCSV := fs.String("zones", os.Getenv("STAFF_ZONES"), "comma-separated zone ids")
		_ = fs.Parse(os.Args[2:])

		if strings.TrimSpace(*username) == "" {
			fatalf("username is required")
		}
		zones, err := parseIDs(*zonesCSV)
		if err != nil {
			fatalf("invalid zones: %v", err)
		}
		id, err := st.addStaff(ctx, staffSeed{
			Username: *username, First: *first, Last: *last,
			Email: *email, Role: normalizeRole(*role), Zones: zones,
		})
		if err != nil {
			fatalf("staff create: %v", err)
		}
		printEnv(map[string]string{"STAFF_ID": strconv.FormatInt(id, 10)})
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  seed demo [--email-domain trees.local]
  seed staff --username <name> [--email <addr>] [--first First] [--last Last] [--role supervisor] [--zones 1,2]

Environment fallbacks:
  SEED_EMAIL_DOMAIN, STAFF_USERNAME, STAFF_EMAIL, FIRST_NAME, LAST_NAME, STAFF_ROLE, STAFF_ZONES
`)
}

func normalizeRole(r string) string {
	r = strings.ToLower(strings.TrimSpace(r))
	r = strings.ReplaceAll(r, "-", "_")
	if r == "" {
		return "field_worker"
	}
	return r
}

func parseIDs(csv string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func printEnv(kv map[string]string) {
	// Print as KEY=VALUE lines so callers can tee into a .env file and `source` it.
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, kv[k])
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}
