package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// replaceFile atomically swaps content into p the way editors save files,
// so the watcher never observes a truncated file.
func replaceFile(t *testing.T, p, content string) {
	t.Helper()
	tmp := filepath.Join(filepath.Dir(p), ".config.yaml.tmp")
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		t.Fatalf("rename config: %v", err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, `server:
  snapshot:
    max_rows_per_table: 20
`)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, p, func(c *Config) { got <- c })
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	replaceFile(t, p, "server:\n  snapshot:\n    max_rows_per_table: 7\n")

	select {
	case c := <-got:
		if c.Server.Snapshot.MaxRowsPerTable != 7 {
			t.Errorf("max_rows_per_table: got %d, want 7", c.Server.Snapshot.MaxRowsPerTable)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_InvalidReloadIsSkipped(t *testing.T) {
	p := writeConfig(t, "server: {}\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, p, func(c *Config) { got <- c }) //nolint:errcheck

	time.Sleep(100 * time.Millisecond)
	replaceFile(t, p, "server:\n  database:\n    driver: mssql\n")

	select {
	case c := <-got:
		t.Fatalf("onChange called with invalid config: %+v", c.Server.Database)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), "/nonexistent/dir/config.yaml", func(*Config) {})
	if err == nil {
		t.Fatal("expected error for missing directory, got nil")
	}
}
