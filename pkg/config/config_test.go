package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultConfigGeometry(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Terminal.Width != 80 || cfg.Terminal.Height != 24 {
		t.Fatalf("default geometry = %dx%d, want 80x24", cfg.Terminal.Width, cfg.Terminal.Height)
	}
	if cfg.Security.PasswordEnabled {
		t.Fatalf("expected password auth disabled by default")
	}
}

func TestLoadConfigMissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := LoadConfig(path)
	if cfg.Server.Listen != ":5900" {
		t.Fatalf("Server.Listen = %q, want :5900", cfg.Server.Listen)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written to %s: %v", path, err)
	}
}

func TestLoadConfigRoundTripsSavedValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Title = "custom-title"
	cfg.Terminal.Width = 132
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := LoadConfig(path)
	if loaded.Server.Title != "custom-title" {
		t.Fatalf("Server.Title = %q, want custom-title", loaded.Server.Title)
	}
	if loaded.Terminal.Width != 132 {
		t.Fatalf("Terminal.Width = %d, want 132", loaded.Terminal.Width)
	}
}

func TestMergeFlagsOnlyOverridesChangedFlags(t *testing.T) {
	cfg := DefaultConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":5900", "")
	flags.String("title", "rfbterm", "")
	flags.Int("width", 80, "")

	if err := flags.Parse([]string{"--width=132"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg.MergeFlags(flags)

	if cfg.Terminal.Width != 132 {
		t.Fatalf("Terminal.Width = %d, want 132 (flag was set)", cfg.Terminal.Width)
	}
	if cfg.Server.Listen != ":5900" {
		t.Fatalf("Server.Listen = %q, want unchanged default (flag not set)", cfg.Server.Listen)
	}
}

func TestMergeFlagsPasswordEnablesAuth(t *testing.T) {
	cfg := DefaultConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("password", "", "")
	if err := flags.Parse([]string{"--password=hunter2"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg.MergeFlags(flags)

	if !cfg.Security.PasswordEnabled {
		t.Fatalf("expected PasswordEnabled to flip true when --password is set")
	}
	if cfg.Security.Password != "hunter2" {
		t.Fatalf("Security.Password = %q, want hunter2", cfg.Security.Password)
	}
}
