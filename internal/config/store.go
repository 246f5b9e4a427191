package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/pretty"
)

// SettingsFile is the document's file name inside the data directory.
const SettingsFile = "settings.json"

// snapshot is one loaded copy of the document.
type snapshot struct {
	doc Document
	// raw is the document as plain JSON, comments stripped.
	raw []byte
	// info identifies the file the snapshot was read from.
	info os.FileInfo
	// loadedAt is the file's modification time when it was read.
	loadedAt time.Time
}

// Store caches and persists the settings document.
// Construct one per process with NewStore or Bootstrap and share it.
type Store struct {
	path string

	mu    sync.Mutex
	cache *snapshot
}

// NewStore returns a store for the document at path. Nothing is read until
// the first Get.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Dir returns the directory holding the document.
func (s *Store) Dir() string {
	return filepath.Dir(s.path)
}

// Get returns the current document. The cache is refreshed first when the
// file on disk is newer than the cached copy.
func (s *Store) Get(ctx context.Context) (Document, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return Document{}, err
	}
	return snap.doc.Clone(), nil
}

// GetKey returns a single value. The top-level keys return typed values
// (int for version, Keybinds for keybinds); any other dotted path such as
// "keybinds.stop" returns the decoded JSON value.
func (s *Store) GetKey(ctx context.Context, key string) (any, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	switch key {
	case KeyVersion:
		return snap.doc.Version, nil
	case KeyKeybinds:
		return snap.doc.Keybinds.Clone(), nil
	}

	res := gjson.GetBytes(snap.raw, key)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return res.Value(), nil
}

// Set merges p over the last loaded document (or the defaults when nothing
// was loaded yet) and writes the result. The cache is left alone.
func (s *Store) Set(ctx context.Context, p Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	base := Defaults()
	if s.cache != nil {
		base = s.cache.doc
	}
	merged := p.Apply(base)
	s.mu.Unlock()

	return s.write(merged)
}

// Reset writes the default document.
func (s *Store) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(Defaults())
}

// Invalidate drops the cached document so the next Get reads the file.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// current returns a fresh snapshot, reloading it when stale.
func (s *Store) current(ctx context.Context) (*snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, &ReadError{Path: s.path, Err: err}
	}
	if s.cache != nil && !s.stale(info) {
		return s.cache, nil
	}

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	s.cache = snap
	return snap, nil
}

// stale reports whether info describes a file newer than the cache.
// A replaced file counts as newer even when the clock granularity hides the
// change in its modification time.
func (s *Store) stale(info os.FileInfo) bool {
	if info.ModTime().After(s.cache.loadedAt) {
		return true
	}
	return !os.SameFile(info, s.cache.info)
}

// load reads and decodes the document. The file is stat'ed through the open
// handle so the recorded identity matches the bytes read.
func (s *Store) load() (*snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &ReadError{Path: s.path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &ReadError{Path: s.path, Err: err}
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &ReadError{Path: s.path, Err: err}
	}

	raw, doc, err := decode(data)
	if err != nil {
		return nil, &ReadError{Path: s.path, Err: err}
	}

	return &snapshot{doc: doc, raw: raw, info: info, loadedAt: info.ModTime()}, nil
}

// decode strips comments and trailing commas before parsing, so a
// hand-edited document still loads.
func decode(data []byte) ([]byte, Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, Document{}, io.ErrUnexpectedEOF
	}
	raw := jsonc.ToJSON(data)
	if !gjson.ValidBytes(raw) {
		return nil, Document{}, fmt.Errorf("malformed JSON")
	}
	if !gjson.ParseBytes(raw).IsObject() {
		return nil, Document{}, fmt.Errorf("document is not an object")
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, Document{}, err
	}
	return raw, doc, nil
}

// write marshals doc and replaces the file with it.
func (s *Store) write(doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &WriteError{Path: s.path, Op: "encode", Err: err}
	}
	return writeAtomic(s.path, pretty.Pretty(data))
}

// writeAtomic writes data to a temporary sibling of path and renames it into
// place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Op: "create", Err: err}
	}
	tmpName := tmp.Name()

	cleanup := func(op string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Op: op, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup("write", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return cleanup("chmod", err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &WriteError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
