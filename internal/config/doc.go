// Package config provides the settings store for the soundboard.
//
// The store owns a single JSON document, settings.json, kept in the
// application's data directory:
//
//	{
//	  "version": 1,
//	  "keybinds": {
//	    "modifier": "CmdOrCtrl+Alt",
//	    "sound0": "num0", ... "sound9": "num9",
//	    "stop": "numdiv",
//	    "nextSet": "PageDown",
//	    "prevSet": "PageUp"
//	  }
//	}
//
// # Caching
//
// Get serves an in-memory snapshot. The snapshot is reloaded when the file on
// disk is newer than the snapshot, or when the file has been replaced. Set and
// Reset never touch the snapshot; they replace the file and the next Get picks
// the change up.
//
// # Writes
//
// Every write goes to a temporary file in the same directory which is then
// renamed over settings.json, so readers see either the old or the new
// document and never a partial one.
//
// # Migration
//
// Migrate upgrades a document written by an older release by walking the
// current defaults: user values are kept for keys the defaults still know,
// missing keys are filled from the defaults and unknown keys are dropped.
//
// # Error Handling
//
//   - ReadError: the document is missing or malformed
//   - WriteError: the document could not be replaced
//   - ErrInvalidPatch: a Set patch names unknown keys or an incomplete keybinds map
//   - ErrUnknownKey: GetKey was asked for a key the document does not have
package config
