package loader

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "TRACEDBG_")
	mapping map[string]string // Env var -> config path
	skip    map[string]bool
	environ func() []string
}

// NewEnvLoader creates an environment loader for prefix, which should include
// the trailing underscore. Variables named in mapping go to the given path;
// other prefixed variables are converted, so TRACEDBG_SERVER_MAX_CONTENT_LENGTH
// becomes server.maxContentLength. Variables in skip are ignored.
func NewEnvLoader(prefix string, mapping map[string]string, skip ...string) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
		skip:    make(map[string]bool),
		environ: os.Environ,
	}
	for _, s := range skip {
		l.skip[s] = true
	}
	return l
}

// Load reads environment variables and returns a configuration map.
// Empty values are kept; a set variable always overrides.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) || l.skip[name] {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		SetByPath(config, path, parseValue(value))
	}

	return config, nil
}

// envToPath converts TRACEDBG_SERVER_MAX_CONTENT_LENGTH to server.maxContentLength.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.TrimPrefix(env, l.prefix)
	parts := strings.Split(name, "_")
	if len(parts) < 2 || parts[0] == "" {
		return strings.ToLower(name)
	}

	setting := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			setting += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return strings.ToLower(parts[0]) + "." + setting
}

// parseValue attempts to parse the string value into an appropriate type.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	// Only values with a decimal point are floats.
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	return s
}
