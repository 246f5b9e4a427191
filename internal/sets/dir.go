package sets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// parsers maps file extensions to set parsers. Anything else is plain text.
var parsers = map[string]func(string, io.Reader) (Set, error){
	".yaml": ParseYAML,
	".yml":  ParseYAML,
}

// LoadDir reads every regular file in dir as a set, in name order. The set
// name is the file name without its extension. Files that cannot be read are
// skipped and reported in the returned error next to the sets that loaded.
func LoadDir(dir string) ([]Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing sets: %w", err)
	}

	var (
		out  []Set
		errs []error
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		set, err := loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, set)
	}
	return out, errors.Join(errs...)
}

func loadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, err
	}
	defer f.Close()

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	parse, ok := parsers[strings.ToLower(ext)]
	if !ok {
		parse = Parse
	}
	return parse(name, f)
}
