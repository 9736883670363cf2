package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	amw "github.com/Shrey-sa/tree-tracker/internal/auth/middleware"
	"github.com/Shrey-sa/tree-tracker/internal/config"
	"github.com/Shrey-sa/tree-tracker/internal/digest/domain"
	"github.com/Shrey-sa/tree-tracker/internal/digest/repository"
	"github.com/Shrey-sa/tree-tracker/internal/platform/database"
)

type bootstrapResult struct {
	StaffID   int64     `json:"staff_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func main() {
	_ = godotenv.Load()
	var (
		staffID  = flag.Int64("staff-id", 0, "staff member the token is issued for")
		tokenTTL = flag.Duration("ttl", 15*time.Minute, "lifetime for the issued token")
		output   = flag.String("output", "env", "output format: env or json")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	h, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer h.Close()

	result, err := issue(ctx, repository.New(h), cfg.JWTSigningKey, *staffID, *tokenTTL, time.Now())
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	switch strings.ToLower(*output) {
	case "json":
		encodeJSON(result)
	case "env":
		printEnv(result)
	default:
		log.Fatalf("unsupported output format: %s", *output)
	}
}

// issue mints a preview token for an existing staff member.
func issue(ctx context.Context, repo domain.Repository, signingKey string, staffID int64, ttl time.Duration, now time.Time) (bootstrapResult, error) {
	if staffID <= 0 {
		return bootstrapResult{}, errors.New("-staff-id is required")
	}
	st, err := repo.GetStaff(ctx, staffID)
	if err != nil {
		return bootstrapResult{}, err
	}
	token, err := amw.MintStaffToken(signingKey, st.ID, ttl, now)
	if err != nil {
		return bootstrapResult{}, err
	}
	return bootstrapResult{
		StaffID:   st.ID,
		Username:  st.Username,
		Email:     st.Email,
		Role:      string(st.Role),
		Token:     token,
		ExpiresAt: now.Add(ttl).UTC(),
	}, nil
}

func encodeJSON(res bootstrapResult) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("failed to encode JSON: %v", err)
	}
}

func printEnv(res bootstrapResult) {
	vars := map[string]string{
		"TRACKER_API_TOKEN":    res.Token,
		"BOOTSTRAP_EXPIRES_AT": res.ExpiresAt.Format(time.RFC3339),
		"BOOTSTRAP_STAFF_ID":   strconv.FormatInt(res.StaffID, 10),
		"BOOTSTRAP_USERNAME":   res.Username,
		"BOOTSTRAP_EMAIL":      res.Email,
		"BOOTSTRAP_ROLE":       res.Role,
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, vars[k])
	}
}
