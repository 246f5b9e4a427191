package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dshills/soundboard/internal/keybind"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Bootstrap(t.TempDir())
	if err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}
	return store
}

func fullKeybinds(value string) Keybinds {
	kb := make(Keybinds)
	for _, k := range keybind.Keys() {
		kb[k] = value
	}
	return kb
}

func TestBootstrap_CreatesDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store, err := Bootstrap(dir)
	if err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, SettingsFile)); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}

	doc, err := store.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !reflect.DeepEqual(doc, Defaults()) {
		t.Errorf("Get() = %+v, want defaults", doc)
	}
}

func TestBootstrap_KeepsExistingDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SettingsFile)
	if err := os.WriteFile(path, []byte(`{"version":1,"keybinds":{"modifier":"Alt"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Bootstrap(dir)
	if err != nil {
		t.Fatalf("Bootstrap() failed: %v", err)
	}
	v, err := store.GetKey(context.Background(), "keybinds.modifier")
	if err != nil {
		t.Fatalf("GetKey() failed: %v", err)
	}
	if v != "Alt" {
		t.Errorf("keybinds.modifier = %v, want Alt", v)
	}
}

func TestBootstrap_UncreatableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Bootstrap(filepath.Join(file, "data"))
	if !errors.Is(err, ErrDataDir) {
		t.Errorf("expected ErrDataDir, got %v", err)
	}
}

func TestEnsureSubdirs(t *testing.T) {
	dir := t.TempDir()

	created, err := EnsureSubdirs(dir)
	if err != nil || !created {
		t.Fatalf("EnsureSubdirs() = %v, %v; want true, nil", created, err)
	}
	if info, err := os.Stat(filepath.Join(dir, SetsDir)); err != nil || !info.IsDir() {
		t.Fatalf("sets dir missing: %v", err)
	}

	created, err = EnsureSubdirs(dir)
	if err != nil || created {
		t.Errorf("second EnsureSubdirs() = %v, %v; want false, nil", created, err)
	}
}

func TestStore_SetThenGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	prior, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	kb := fullKeybinds("F1")
	if err := store.Set(ctx, Patch{Keybinds: kb}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	want := Document{Version: prior.Version, Keybinds: kb}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() after Set() = %+v, want %+v", got, want)
	}
}

func TestStore_SetKeepsUnpatchedKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Get(ctx); err != nil {
		t.Fatal(err)
	}
	version := 7
	if err := store.Set(ctx, Patch{Version: &version}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 7 {
		t.Errorf("Version = %d, want 7", got.Version)
	}
	if !reflect.DeepEqual(got.Keybinds, Defaults().Keybinds) {
		t.Errorf("Keybinds changed by a version-only patch: %v", got.Keybinds)
	}
}

func TestStore_SetWithoutCacheUsesDefaults(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, SettingsFile)
	if err := os.WriteFile(path, []byte(`{"version":1,"keybinds":{"modifier":"Shift"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	version := 2
	if err := store.Set(ctx, Patch{Version: &version}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Keybinds[keybind.ModifierKey] != Defaults().Keybinds[keybind.ModifierKey] {
		t.Errorf("modifier = %q, want the default", got.Keybinds[keybind.ModifierKey])
	}
}

func TestStore_SetRejectsInvalidPatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name  string
		patch Patch
	}{
		{"partial keybinds", Patch{Keybinds: Keybinds{"stop": "x"}}},
		{"unknown keybind", Patch{Keybinds: func() Keybinds {
			kb := fullKeybinds("x")
			kb["sound10"] = "y"
			return kb
		}()}},
		{"zero version", Patch{Version: new(int)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(ctx, tt.patch)
			if !errors.Is(err, ErrInvalidPatch) {
				t.Errorf("expected ErrInvalidPatch, got %v", err)
			}
		})
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Errorf("rejected patches modified the document: %+v", got)
	}
}

func TestStore_ResetThenGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Set(ctx, Patch{Keybinds: fullKeybinds("")}); err != nil {
		t.Fatal(err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("Reset() failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, Defaults()) {
		t.Errorf("Get() after Reset() = %+v, want defaults", got)
	}
	if got.Version != CurrentVersion {
		t.Errorf("Version = %d, want %d", got.Version, CurrentVersion)
	}
}

func TestStore_GetServesCache(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cached := store.cache

	second, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if store.cache != cached {
		t.Error("Get() reloaded an unchanged document")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached Get() returned a different document")
	}
}

func TestStore_GetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	doc, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	doc.Keybinds["stop"] = "mutated"

	again, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Keybinds["stop"] == "mutated" {
		t.Error("mutating a returned document changed the cache")
	}
}

func TestStore_GetMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), SettingsFile))

	_, err := store.Get(context.Background())
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if !errors.Is(err, ErrRead) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadError does not match ErrRead and os.ErrNotExist: %v", err)
	}
}

func TestStore_GetMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"truncated", `{"version": 1, "keybinds": {`},
		{"array", `[1, 2]`},
		{"wrong type", `{"version": "one"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), SettingsFile)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewStore(path).Get(context.Background())
			if !errors.Is(err, ErrRead) {
				t.Errorf("expected ErrRead, got %v", err)
			}
		})
	}
}

func TestStore_GetAcceptsComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), SettingsFile)
	content := `{
	// edited by hand
	"version": 1,
	"keybinds": {"modifier": "Ctrl",},
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := NewStore(path).Get(context.Background())
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if doc.Keybinds["modifier"] != "Ctrl" {
		t.Errorf("modifier = %q, want Ctrl", doc.Keybinds["modifier"])
	}
}

func TestStore_GetKey(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	v, err := store.GetKey(ctx, KeyVersion)
	if err != nil || v != CurrentVersion {
		t.Errorf("GetKey(version) = %v, %v", v, err)
	}

	kb, err := store.GetKey(ctx, KeyKeybinds)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(kb, Defaults().Keybinds) {
		t.Errorf("GetKey(keybinds) = %v", kb)
	}

	stop, err := store.GetKey(ctx, "keybinds.stop")
	if err != nil || stop != "numdiv" {
		t.Errorf("GetKey(keybinds.stop) = %v, %v", stop, err)
	}

	if _, err := store.GetKey(ctx, "theme"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

func TestStore_WriteFailureLeavesDocument(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	ctx := context.Background()
	dir := t.TempDir()
	store, err := Bootstrap(dir)
	if err != nil {
		t.Fatal(err)
	}
	before, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0o755)

	err = store.Set(ctx, Patch{Keybinds: fullKeybinds("x")})
	var writeErr *WriteError
	if !errors.As(err, &writeErr) || !errors.Is(err, ErrWrite) {
		t.Fatalf("expected *WriteError, got %v", err)
	}

	after, err := store.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Error("failed write changed the document")
	}
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := Bootstrap(dir)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if err := store.Reset(ctx); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != SettingsFile {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory contents: %v", names)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Get(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() = %v, want context.Canceled", err)
	}
	if err := store.Reset(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Reset() = %v, want context.Canceled", err)
	}
}

func TestParsePatch(t *testing.T) {
	if _, err := ParsePatch([]byte(`{"theme":"dark"}`)); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("unknown top-level key: expected ErrInvalidPatch, got %v", err)
	}
	if _, err := ParsePatch([]byte(`{"version":`)); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("truncated patch: expected ErrInvalidPatch, got %v", err)
	}

	p, err := ParsePatch([]byte(`{"version":3}`))
	if err != nil {
		t.Fatalf("ParsePatch() failed: %v", err)
	}
	if p.Version == nil || *p.Version != 3 || p.Keybinds != nil {
		t.Errorf("unexpected patch: %+v", p)
	}
}
