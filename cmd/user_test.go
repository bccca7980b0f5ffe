package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/breathsave/breathsave/internal/config"
	"github.com/breathsave/breathsave/internal/pipeline"
	"github.com/breathsave/breathsave/internal/store"
)

func TestAccountsSurviveCacheRemoval(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	ctx := context.Background()
	cfg := config.DefaultConfig()

	svc, closeFn, err := authService(cfg)
	if err != nil {
		t.Fatalf("authService: %v", err)
	}
	if err := svc.Register(ctx, "alice", "secret1", "secret1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	closeFn()

	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	_ = cache.Close()
	if err := os.RemoveAll(pipeline.CacheDir()); err != nil {
		t.Fatal(err)
	}

	svc, closeFn, err = authService(cfg)
	if err != nil {
		t.Fatalf("authService after cache removal: %v", err)
	}
	defer closeFn()
	ok, err := svc.Verify(ctx, "alice", "secret1")
	if err != nil || !ok {
		t.Errorf("Verify after cache removal = %v, %v; want true", ok, err)
	}
}

func TestOpenCredentials_HonorsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg := config.DefaultConfig()
	cfg.Auth.CredentialsPath = filepath.Join(t.TempDir(), "accounts", "creds.db")

	creds, closeFn, err := openCredentials(cfg)
	if err != nil {
		t.Fatalf("openCredentials: %v", err)
	}
	defer closeFn()
	if err := creds.Store(context.Background(), "bob", "h"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.Auth.CredentialsPath); err != nil {
		t.Errorf("credential database not at configured path: %v", err)
	}
}
