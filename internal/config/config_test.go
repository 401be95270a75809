package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestConfigDirEnv(t *testing.T) {
	t.Setenv("QVIEW_CONFIG_HOME", "/tmp/qview-config")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/qview-config" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/qview-config")
	}

	t.Setenv("QVIEW_CONFIG_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg/qview" {
		t.Fatalf("ConfigDir = %q, want %q", dir, "/tmp/xdg/qview")
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	t.Setenv("QVIEW_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	def := Default()
	if cfg.Viewer != def.Viewer {
		t.Fatalf("Viewer = %+v, want %+v", cfg.Viewer, def.Viewer)
	}
	if cfg.Keymap.Normal["j"] != "scroll_down" {
		t.Fatalf("keymap j = %q, want scroll_down", cfg.Keymap.Normal["j"])
	}
}

func TestLoadWithThemeAndOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QVIEW_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "theme", "test.toml"), `
foreground = "#111111"
background = "#222222"
statusline-foreground = "#333333"
`)

	writeFile(t, filepath.Join(dir, "config.toml"), `
[viewer]
chunk-alignment = 50
cache-policy = "lru"
buffer-behind = 0
wrap = false
frame-interval = "8ms"

[theme]
theme = "test"
commandline-background = "#123456"
active-search-background = "#654321"

[keymap.normal]
x = "quit"
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Viewer.ChunkAlignment != 50 {
		t.Fatalf("ChunkAlignment = %d, want 50", cfg.Viewer.ChunkAlignment)
	}
	if cfg.Viewer.CachePolicy != "lru" {
		t.Fatalf("CachePolicy = %q, want lru", cfg.Viewer.CachePolicy)
	}
	if cfg.Viewer.BufferBehind != 0 {
		t.Fatalf("BufferBehind = %d, want 0", cfg.Viewer.BufferBehind)
	}
	if cfg.Viewer.BufferAhead != 200 {
		t.Fatalf("BufferAhead = %d, want default 200", cfg.Viewer.BufferAhead)
	}
	if cfg.Viewer.Wrap {
		t.Fatalf("Wrap = true, want false")
	}
	if !cfg.Viewer.Prefetch {
		t.Fatalf("Prefetch = false, want default true")
	}
	if got := cfg.Viewer.FrameDuration(); got != 8*time.Millisecond {
		t.Fatalf("FrameDuration = %v, want 8ms", got)
	}
	if cfg.Theme.Foreground != "#111111" {
		t.Fatalf("Foreground = %q, want %q", cfg.Theme.Foreground, "#111111")
	}
	if cfg.Theme.Background != "#222222" {
		t.Fatalf("Background = %q, want %q", cfg.Theme.Background, "#222222")
	}
	if cfg.Theme.CommandlineBackground != "#123456" {
		t.Fatalf("CommandlineBackground = %q, want %q", cfg.Theme.CommandlineBackground, "#123456")
	}
	if cfg.Theme.ActiveMatchBackground != "#654321" {
		t.Fatalf("ActiveMatchBackground = %q, want %q", cfg.Theme.ActiveMatchBackground, "#654321")
	}
	if cfg.Keymap.Normal["x"] != "quit" {
		t.Fatalf("keymap x = %q, want %q", cfg.Keymap.Normal["x"], "quit")
	}
	if cfg.Keymap.Normal["j"] != "scroll_down" {
		t.Fatalf("keymap j = %q, want %q", cfg.Keymap.Normal["j"], "scroll_down")
	}
}

func TestInvalidViewerValuesKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, `
[viewer]
chunk-alignment = 0
cache-capacity = -3
cache-policy = "random"
line-height = 0
buffer-ahead = -1
frame-interval = "soon"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	def := Default().Viewer
	if cfg.Viewer != def {
		t.Fatalf("Viewer = %+v, want defaults %+v", cfg.Viewer, def)
	}
}

func TestFrameDurationFallback(t *testing.T) {
	for _, v := range []string{"", "-5ms", "0s", "fast"} {
		if got := (ViewerOptions{FrameInterval: v}).FrameDuration(); got != 16*time.Millisecond {
			t.Fatalf("FrameDuration(%q) = %v, want 16ms", v, got)
		}
	}
}

func TestLoadFileRejectsBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	writeFile(t, path, "[viewer\nwrap = ")
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("LoadFile accepted malformed toml")
	}
}

func TestLoadThemeWrapped(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("QVIEW_CONFIG_HOME", dir)

	writeFile(t, filepath.Join(dir, "theme", "wrapped.toml"), `
[theme]
foreground = "#aaaaaa"
background = "#bbbbbb"
`)

	theme, err := LoadTheme("wrapped")
	if err != nil {
		t.Fatalf("LoadTheme error: %v", err)
	}
	if theme.Foreground != "#aaaaaa" {
		t.Fatalf("Foreground = %q, want %q", theme.Foreground, "#aaaaaa")
	}
	if theme.Background != "#bbbbbb" {
		t.Fatalf("Background = %q, want %q", theme.Background, "#bbbbbb")
	}
}
