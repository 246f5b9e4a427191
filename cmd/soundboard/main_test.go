package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/dshills/soundboard/internal/config"
	"github.com/dshills/soundboard/internal/router"
)

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	return cmd
}

func TestLoadOptionsPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "options.toml")
	content := "data_dir = \"" + filepath.ToSlash(filepath.Join(dir, "from-file")) + "\"\nlog_level = \"warn\"\ndebug = true\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOUNDBOARD_LOG_LEVEL", "error")

	optionsFile = file
	t.Cleanup(func() { optionsFile = "" })

	flagDir := filepath.Join(dir, "from-flag")
	cmd := newFlagCmd(t, "--data-dir", flagDir, "--headless")

	opts, err := loadOptions(cmd)
	if err != nil {
		t.Fatalf("loadOptions: %v", err)
	}
	if opts.DataDir != flagDir {
		t.Errorf("DataDir = %q, want %q", opts.DataDir, flagDir)
	}
	if opts.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want env value error", opts.LogLevel)
	}
	if !opts.Debug {
		t.Error("Debug from file was lost")
	}
	if !opts.Headless {
		t.Error("Headless flag was not applied")
	}
}

func TestLoadOptionsRejectsBadLevel(t *testing.T) {
	optionsFile = filepath.Join(t.TempDir(), "missing.toml")
	t.Cleanup(func() { optionsFile = "" })

	cmd := newFlagCmd(t, "--log-level", "loud")
	if _, err := loadOptions(cmd); err == nil {
		t.Fatal("expected an error for an unknown log level")
	}
}

func TestFileSettings(t *testing.T) {
	dir := t.TempDir()
	store, err := config.Bootstrap(dir)
	if err != nil {
		t.Fatal(err)
	}
	fs := &fileSettings{dir: dir, store: store}
	ctx := context.Background()

	reply, err := fs.Request(ctx, router.ChannelSettingsPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	var path string
	if err := reply.Decode(&path); err != nil || path != dir {
		t.Errorf("path = %q (%v), want %q", path, err, dir)
	}

	reply, err = fs.Request(ctx, router.ChannelSettingsGet, "keybinds.stop")
	if err != nil {
		t.Fatal(err)
	}
	var stop string
	if err := reply.Decode(&stop); err != nil || stop != "numdiv" {
		t.Errorf("keybinds.stop = %q (%v), want numdiv", stop, err)
	}

	kb := config.Defaults().Keybinds.Clone()
	kb["stop"] = "S"
	patch, _ := json.Marshal(map[string]any{"keybinds": kb})
	if _, err := fs.Request(ctx, router.ChannelSettingsSet, json.RawMessage(patch)); err != nil {
		t.Fatalf("set: %v", err)
	}
	doc, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Keybinds["stop"] != "S" {
		t.Errorf("stop after set = %q, want S", doc.Keybinds["stop"])
	}

	_, err = fs.Request(ctx, router.ChannelSettingsSet, json.RawMessage(`{"keybinds":{"stop":"X"}}`))
	if !errors.Is(err, config.ErrInvalidPatch) {
		t.Errorf("partial keybinds error = %v, want ErrInvalidPatch", err)
	}

	if _, err := fs.Request(ctx, router.ChannelSettingsReset, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	doc, _ = store.Get(ctx)
	if doc.Keybinds["stop"] != "numdiv" {
		t.Errorf("stop after reset = %q, want numdiv", doc.Keybinds["stop"])
	}

	if _, err := fs.Request(ctx, router.ChannelPlay, nil); !errors.Is(err, router.ErrNoHandler) {
		t.Errorf("play request error = %v, want ErrNoHandler", err)
	}
}

func TestPrintPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := printPayload(&buf, nil); err != nil || buf.Len() != 0 {
		t.Errorf("empty payload printed %q (%v)", buf.String(), err)
	}
	if err := printPayload(&buf, json.RawMessage(`{"version":1}`)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\"version\": 1") {
		t.Errorf("output = %q, want indented JSON", buf.String())
	}
}
