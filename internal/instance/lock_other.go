//go:build !unix && !windows

package instance

import "os"

// Platforms without file locking run unguarded.
func tryLock(*os.File) error { return nil }

func unlock(*os.File) error { return nil }
