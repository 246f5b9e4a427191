// Package options holds process options: where data lives, how to log,
// and which surfaces to start. Options come from defaults, then an optional
// TOML file, then SOUNDBOARD_* environment variables, then command-line flags.
package options

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/soundboard/internal/logging"
)

// AppName names the per-user directories.
const AppName = "soundboard"

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "SOUNDBOARD_"

// FileName is the options file inside the data directory.
const FileName = "options.toml"

// ErrInvalid is returned for options that fail validation.
var ErrInvalid = errors.New("invalid options")

// ParseError reports a malformed options file or variable.
type ParseError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Options are the process options.
type Options struct {
	// DataDir holds settings.json and the sets directory.
	DataDir string `toml:"data_dir"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level"`

	// LogFile receives log output. Empty means stderr, or a file in the
	// data directory while the terminal surface owns the screen.
	LogFile string `toml:"log_file"`

	// Listen is the bridge address. Empty disables the bridge.
	Listen string `toml:"listen"`

	// Debug adds developer menu entries.
	Debug bool `toml:"debug"`

	// Headless runs without the terminal surface.
	Headless bool `toml:"headless"`
}

// Defaults returns the default options.
func Defaults() Options {
	return Options{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
		Listen:   "127.0.0.1:0",
	}
}

// DefaultDataDir returns the per-user data directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", AppName)
}

// DefaultFile returns the options file in the default data directory.
func DefaultFile() string {
	return filepath.Join(DefaultDataDir(), FileName)
}

// Load returns the defaults overlaid with the file at path (when it exists)
// and the environment. An empty path uses DefaultFile.
func Load(path string) (Options, error) {
	if path == "" {
		path = DefaultFile()
	}
	o := Defaults()
	if err := o.LoadFile(path); err != nil {
		return Options{}, err
	}
	if err := o.ApplyEnv(os.LookupEnv); err != nil {
		return Options{}, err
	}
	return o, o.Validate()
}

// LoadFile overlays the TOML file at path. A missing file is not an error.
// Keys the file does not set keep their current values.
func (o *Options) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading options file %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(o); err != nil {
		return &ParseError{Source: path, Err: err}
	}
	return nil
}

// ApplyEnv overlays the SOUNDBOARD_* variables found by lookup.
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DATA_DIR":  &o.DataDir,
		"LOG_LEVEL": &o.LogLevel,
		"LOG_FILE":  &o.LogFile,
		"LISTEN":    &o.Listen,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"DEBUG":    &o.Debug,
		"HEADLESS": &o.Headless,
	}
	for name, dst := range bools {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ParseError{Source: EnvPrefix + name, Err: err}
		}
		*dst = b
	}
	return nil
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.DataDir == "" {
		return fmt.Errorf("%w: data directory is empty", ErrInvalid)
	}
	if !logging.ValidLevel(o.LogLevel) {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, o.LogLevel)
	}
	return nil
}

// TOML renders the options as an options file.
func (o Options) TOML() ([]byte, error) {
	return toml.Marshal(o)
}
