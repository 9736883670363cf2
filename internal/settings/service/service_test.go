package service

import (
	"context"
	"errors"
	"testing"
	"time"

	sdomain "github.com/Shrey-sa/tree-tracker/internal/settings/domain"
)

type memRepo struct {
	vals map[string]string
	err  error
}

func (m *memRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *memRepo) Upsert(ctx context.Context, key string, value string, secret bool) error {
	m.vals[key] = value
	return nil
}

var _ sdomain.Repository = (*memRepo)(nil)

func TestGetString_FallsBackOnMissingOrBlank(t *testing.T) {
	s := New(&memRepo{vals: map[string]string{sdomain.KeyEmailFrom: "   "}})
	got, err := s.GetString(context.Background(), sdomain.KeyEmailFrom, "def@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "def@example.org" {
		t.Fatalf("expected default for blank value, got %q", got)
	}
	got, _ = s.GetString(context.Background(), sdomain.KeyEmailProvider, "smtp")
	if got != "smtp" {
		t.Fatalf("expected default for missing key, got %q", got)
	}
}

func TestGetInt_ParsesAndIgnoresGarbage(t *testing.T) {
	s := New(&memRepo{vals: map[string]string{
		sdomain.KeyOverdueRowCap:    " 12 ",
		sdomain.KeyInspectionRowCap: "twenty",
	}})
	if v, _ := s.GetInt(context.Background(), sdomain.KeyOverdueRowCap, 30); v != 12 {
		t.Fatalf("expected 12, got %d", v)
	}
	if v, _ := s.GetInt(context.Background(), sdomain.KeyInspectionRowCap, 20); v != 20 {
		t.Fatalf("expected default 20 for unparsable value, got %d", v)
	}
}

func TestGetDuration_RejectsNonPositive(t *testing.T) {
	s := New(&memRepo{vals: map[string]string{sdomain.KeyInspectionWindow: "-1h"}})
	if d, _ := s.GetDuration(context.Background(), sdomain.KeyInspectionWindow, time.Hour); d != time.Hour {
		t.Fatalf("expected default, got %s", d)
	}
	s = New(&memRepo{vals: map[string]string{sdomain.KeyInspectionWindow: "72h"}})
	if d, _ := s.GetDuration(context.Background(), sdomain.KeyInspectionWindow, time.Hour); d != 72*time.Hour {
		t.Fatalf("expected 72h, got %s", d)
	}
}

func TestGet_ReturnsDefaultAndErrorOnRepoFailure(t *testing.T) {
	boom := errors.New("db down")
	s := New(&memRepo{err: boom})
	v, err := s.GetInt(context.Background(), sdomain.KeyOverdueRowCap, 30)
	if !errors.Is(err, boom) {
		t.Fatalf("expected repo error, got %v", err)
	}
	if v != 30 {
		t.Fatalf("expected default alongside error, got %d", v)
	}
}

func TestSet_ValidatesKnownKeys(t *testing.T) {
	repo := &memRepo{vals: map[string]string{}}
	s := New(repo)
	ctx := context.Background()

	if err := s.Set(ctx, sdomain.KeyOverdueRowCap, " 12 "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.vals[sdomain.KeyOverdueRowCap] != "12" {
		t.Fatalf("expected trimmed value stored, got %q", repo.vals[sdomain.KeyOverdueRowCap])
	}
	if err := s.Set(ctx, sdomain.KeyInspectionRowCap, "0"); err == nil {
		t.Fatalf("expected error for non-positive row cap")
	}
	if err := s.Set(ctx, sdomain.KeyInspectionWindow, "two weeks"); err == nil {
		t.Fatalf("expected error for malformed window")
	}
	if err := s.Set(ctx, "digest.weekly", "on"); !errors.Is(err, sdomain.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestValidate_NeverWrites(t *testing.T) {
	repo := &memRepo{vals: map[string]string{}}
	s := New(repo)

	if err := s.Validate(sdomain.KeyInspectionWindow, "336h"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Validate(sdomain.KeyOverdueRowCap, "-1"); err == nil {
		t.Fatalf("expected error for negative row cap")
	}
	if len(repo.vals) != 0 {
		t.Fatalf("validate must not store anything, got %v", repo.vals)
	}
}
