package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/tracedbg/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by LoadEnv.
const EnvPrefix = "TRACEDBG_"

// EnvConfigFile names the configuration file when no path is given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Layer identifies a configuration source.
type Layer int

// Layers in increasing priority.
const (
	LayerDefaults Layer = iota
	LayerFile
	LayerEnv
	LayerFlags
	numLayers
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerDefaults:
		return "defaults"
	case LayerFile:
		return "file"
	case LayerEnv:
		return "env"
	case LayerFlags:
		return "flags"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// envMapping maps environment variables whose names do not follow the
// SECTION_SETTING convention.
var envMapping = map[string]string{
	EnvPrefix + "LOG_LEVEL":         "logging.level",
	EnvPrefix + "LOG_FORMAT":        "logging.format",
	EnvPrefix + "LOG_FILE":          "logging.file",
	EnvPrefix + "EXCEPTIONS_ASSERT": "debugger.exceptions.assert",
	EnvPrefix + "EXCEPTIONS_REVERT": "debugger.exceptions.revert",
}

// Config provides layered access to tracedbg settings.
// It is safe for concurrent use.
type Config struct {
	mu     sync.RWMutex
	layers [numLayers]map[string]any
	fs     loader.FileSystem
	env    *loader.EnvLoader

	// file is the path of the loaded configuration file, if any.
	file string

	// configErrors stores errors encountered during configuration access.
	configErrors map[string]error
}

// Option configures a Config instance.
type Option func(*Config)

// WithFS sets the file system configuration files are read from.
func WithFS(fs loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fs
	}
}

// WithEnvLoader replaces the environment loader.
func WithEnvLoader(l *loader.EnvLoader) Option {
	return func(c *Config) {
		c.env = l
	}
}

// New creates a Config holding only the built-in defaults.
func New(opts ...Option) *Config {
	c := &Config{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(EnvPrefix, envMapping, EnvConfigFile),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.layers[LayerDefaults] = defaultConfig()
	return c
}

// Load creates a Config from defaults, the file at path and the environment.
// An empty path loads no file.
func Load(path string, opts ...Option) (*Config, error) {
	c := New(opts...)
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.LoadEnv(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile loads the configuration file at path into the file layer.
// The format is chosen by extension.
func (c *Config) LoadFile(path string) error {
	l, err := loader.ForFile(c.fs, path)
	if err != nil {
		return err
	}
	data, err := l.Load()
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	if data == nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers[LayerFile] = data
	c.file = path
	c.configErrors = nil
	return nil
}

// LoadEnv loads TRACEDBG_ environment variables into the env layer.
func (c *Config) LoadEnv() error {
	data, err := c.env.Load()
	if err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.layers[LayerEnv] = data
	c.configErrors = nil
	return nil
}

// File returns the path of the loaded configuration file.
func (c *Config) File() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.file
}

// Set stores value at path in the flags layer.
func (c *Config) Set(path string, value any) error {
	if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") || strings.Contains(path, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.layers[LayerFlags] == nil {
		c.layers[LayerFlags] = make(map[string]any)
	}
	loader.SetByPath(c.layers[LayerFlags], path, value)
	delete(c.configErrors, path)
	return nil
}

// Merged returns the merged configuration of all layers.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.merged()
}

func (c *Config) merged() map[string]any {
	result := make(map[string]any)
	for _, layer := range c.layers {
		if layer != nil {
			result = loader.DeepMerge(result, layer)
		}
	}
	return result
}

// Get returns the value at the given path from the highest layer defining it.
func (c *Config) Get(path string) (any, bool) {
	v, _, ok := c.Lookup(path)
	return v, ok
}

// Lookup returns the value at path and the layer it came from.
func (c *Config) Lookup(path string) (any, Layer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for l := numLayers - 1; l >= 0; l-- {
		if c.layers[l] == nil {
			continue
		}
		if v, ok := loader.GetByPath(c.layers[l], path); ok {
			return v, l, true
		}
	}
	return nil, LayerDefaults, false
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, layer, ok := c.Lookup(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Layer: layer, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, layer, ok := c.Lookup(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Layer: layer, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, layer, ok := c.Lookup(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Layer: layer, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetDuration returns a duration at the given path. Strings are parsed with
// time.ParseDuration and plain integers are taken as milliseconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, layer, ok := c.Lookup(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &TypeError{Path: path, Layer: layer, Expected: "duration", Actual: fmt.Sprintf("%q", val)}
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	default:
		return 0, &TypeError{Path: path, Layer: layer, Expected: "duration", Actual: typeName(v)}
	}
}

// Errors returns the configuration errors found by section accessors,
// sorted by setting path.
func (c *Config) Errors() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.configErrors))
	for p := range c.configErrors {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	errs := make([]error, 0, len(paths))
	for _, p := range paths {
		errs = append(errs, c.configErrors[p])
	}
	return errs
}

// recordConfigError stores configuration errors for later retrieval.
// Only the first error for each path is recorded.
func (c *Config) recordConfigError(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErrors == nil {
		c.configErrors = make(map[string]error)
	}
	if _, exists := c.configErrors[path]; !exists {
		c.configErrors[path] = err
	}
}

func defaultConfig() map[string]any {
	return map[string]any{
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
			"file":   "",
		},
		"server": map[string]any{
			"listen":           "",
			"maxContentLength": DefaultMaxContentLength,
		},
		"debugger": map[string]any{
			"stopOnEntry": false,
			"exceptions": map[string]any{
				"assert": true,
				"revert": false,
			},
			"conditionTimeout": DefaultConditionTimeout.String(),
		},
		"telemetry": map[string]any{
			"enabled": false,
			"file":    "",
		},
	}
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
