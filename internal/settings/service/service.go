package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdomain "github.com/Shrey-sa/tree-tracker/internal/settings/domain"
)

type Service struct{ repo sdomain.Repository }

func New(repo sdomain.Repository) *Service { return &Service{repo: repo} }

func (s *Service) lookup(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.repo.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	v = strings.TrimSpace(v)
	return v, v != "", nil
}

func (s *Service) GetString(ctx context.Context, key string, def string) (string, error) {
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

func (s *Service) GetDuration(ctx context.Context, key string, def time.Duration) (time.Duration, error) {
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, nil
	}
	return d, nil
}

func (s *Service) GetInt(ctx context.Context, key string, def int) (int, error) {
	v, ok, err := s.lookup(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// Validate checks value against key's type without storing it. Only known
// keys are accepted.
func (s *Service) Validate(key, value string) error {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case sdomain.KeyEmailProvider, sdomain.KeyEmailFrom:
	case sdomain.KeyOverdueRowCap, sdomain.KeyInspectionRowCap:
		if n, err := strconv.Atoi(value); err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
	case sdomain.KeyInspectionWindow:
		if d, err := time.ParseDuration(value); err != nil || d <= 0 {
			return fmt.Errorf("%s must be a positive duration, got %q", key, value)
		}
	default:
		return fmt.Errorf("%w: %q", sdomain.ErrUnknownKey, key)
	}
	return nil
}

// Set validates and stores a runtime override.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.Validate(key, value); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	return s.repo.Upsert(ctx, key, strings.TrimSpace(value), sdomain.IsSecretKey(key))
}
