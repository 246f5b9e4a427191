package config

import (
	"context"
	"encoding/json"
	"os"

	"github.com/tidwall/jsonc"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// MigrationResult describes what Migrate did.
type MigrationResult struct {
	// FromVersion is the version found on disk (0 when missing or not a number).
	FromVersion int
	// ToVersion is the version on disk after Migrate returns.
	ToVersion int
	// Migrated is true when the document was upgraded and rewritten.
	Migrated bool
	// Newer is true when the document was written by a newer release.
	Newer bool
}

// Upgrade rebuilds old on the structure of defaults. For each key of
// defaults: when old has it too, nested maps are upgraded recursively and
// any other value is taken from old; when old lacks it, the default is used.
// Keys only present in old are dropped.
func Upgrade(old, defaults map[string]any) map[string]any {
	upgraded := make(map[string]any, len(defaults))
	for key, def := range defaults {
		value, ok := old[key]
		if !ok {
			upgraded[key] = cloneValue(def)
			continue
		}
		if defMap, isMap := def.(map[string]any); isMap {
			oldMap, _ := value.(map[string]any)
			upgraded[key] = Upgrade(oldMap, defMap)
			continue
		}
		upgraded[key] = value
	}
	return upgraded
}

// Migrate upgrades the document on disk when its version is missing, not a
// number or older than CurrentVersion. It runs once against the current
// defaults; there are no per-version steps.
func (s *Store) Migrate(ctx context.Context) (MigrationResult, error) {
	if err := ctx.Err(); err != nil {
		return MigrationResult{}, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return MigrationResult{}, &ReadError{Path: s.path, Err: err}
	}

	var old map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &old); err != nil {
		return MigrationResult{}, &ReadError{Path: s.path, Err: err}
	}

	from, ok := versionOf(old)
	result := MigrationResult{FromVersion: from, ToVersion: from}
	if ok && from >= CurrentVersion {
		result.Newer = from > CurrentVersion
		return result, nil
	}

	out, err := json.Marshal(Upgrade(old, defaultsMap()))
	if err != nil {
		return result, &WriteError{Path: s.path, Op: "encode", Err: err}
	}
	out, err = sjson.SetBytes(out, KeyVersion, CurrentVersion)
	if err != nil {
		return result, &WriteError{Path: s.path, Op: "encode", Err: err}
	}
	if err := writeAtomic(s.path, pretty.Pretty(out)); err != nil {
		return result, err
	}

	s.Invalidate()
	result.ToVersion = CurrentVersion
	result.Migrated = true
	return result, nil
}

// versionOf extracts an integral version number from a decoded document.
func versionOf(doc map[string]any) (int, bool) {
	f, ok := doc[KeyVersion].(float64)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// cloneValue creates a deep copy of a decoded JSON value.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
