package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledgerbook/internal/config"
	"ledgerbook/internal/sources/memory"
	"ledgerbook/internal/sources/rest"
	"ledgerbook/internal/sources/sqlite"
)

func TestCreateBackend(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Backend.(*memory.Store); !ok {
			t.Fatalf("expected memory store, got %T", res.Backend)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "l.db")})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Backend.(*sqlite.Repository); !ok {
			t.Fatalf("expected sqlite repository, got %T", res.Backend)
		}
		if res.Cleanup == nil || res.Cleanup() != nil {
			t.Fatalf("expected working cleanup")
		}
	})

	t.Run("rest", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: RESTBackend, RESTBaseURL: "http://localhost:1/osori", FetchTimeout: time.Second, FetchRetries: 1})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Backend.(*rest.Client); !ok {
			t.Fatalf("expected rest client, got %T", res.Backend)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, cfg := range []Config{
			{Type: "mongo"},
			{Type: SQLiteBackend},
			{Type: SheetsBackend},
			{Type: RESTBackend},
		} {
			if _, err := f.CreateBackend(ctx, cfg); err == nil {
				t.Fatalf("expected error for %+v", cfg)
			}
		}
	})
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "bogus"}); err == nil {
		t.Fatalf("expected error for invalid backend")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "rest", RESTBaseURL: "http://x", FetchRetries: 3, FetchTimeout: time.Second})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != RESTBackend || cfg.RESTBaseURL != "http://x" || cfg.FetchRetries != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestBackendTypes(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Fatalf("%s should be valid", bt)
		}
	}
	if BackendType("").IsValid() {
		t.Fatalf("empty type should be invalid")
	}
}
