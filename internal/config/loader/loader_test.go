package loader

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForFile(t *testing.T) {
	fsys := MapFS{}

	l, err := ForFile(fsys, "tracedbg.toml")
	require.NoError(t, err)
	assert.IsType(t, &TOMLLoader{}, l)

	l, err = ForFile(fsys, "conf/tracedbg.YML")
	require.NoError(t, err)
	assert.IsType(t, &YAMLLoader{}, l)

	_, err = ForFile(fsys, "tracedbg.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTOMLLoader_Load(t *testing.T) {
	fsys := MapFS{"tracedbg.toml": `
[logging]
level = "debug"

[server]
maxContentLength = 4096

[debugger]
conditionTimeout = "250ms"

[debugger.exceptions]
revert = true
`}

	config, err := NewTOMLLoaderWithFS(fsys, "tracedbg.toml").Load()
	require.NoError(t, err)

	v, ok := GetByPath(config, "logging.level")
	require.True(t, ok)
	assert.Equal(t, "debug", v)

	v, ok = GetByPath(config, "server.maxContentLength")
	require.True(t, ok)
	assert.Equal(t, int64(4096), v)

	v, ok = GetByPath(config, "debugger.exceptions.revert")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestTOMLLoader_MissingFile(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(MapFS{}, "absent.toml").Load()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestTOMLLoader_ParseError(t *testing.T) {
	_, err := NewTOMLLoaderWithFS(MapFS{"bad.toml": "[logging\nlevel = 1"}, "bad.toml").Load()
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad.toml", perr.Path)
	assert.Positive(t, perr.Line)
}

func TestYAMLLoader_Load(t *testing.T) {
	fsys := MapFS{"tracedbg.yaml": `
logging:
  format: json
debugger:
  stopOnEntry: true
  exceptions:
    assert: false
`}

	config, err := NewYAMLLoaderWithFS(fsys, "tracedbg.yaml").Load()
	require.NoError(t, err)

	v, ok := GetByPath(config, "logging.format")
	require.True(t, ok)
	assert.Equal(t, "json", v)

	v, ok = GetByPath(config, "debugger.exceptions.assert")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestYAMLLoader_ParseError(t *testing.T) {
	_, err := NewYAMLLoader("").LoadFromReader(strings.NewReader("logging: [unclosed"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "<reader>", perr.Path)
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("TRACEDBG_", map[string]string{
		"TRACEDBG_LOG_LEVEL": "logging.level",
	}, "TRACEDBG_CONFIG")
	l.environ = func() []string {
		return []string{
			"TRACEDBG_LOG_LEVEL=debug",
			"TRACEDBG_SERVER_MAX_CONTENT_LENGTH=2048",
			"TRACEDBG_DEBUGGER_CONDITION_TIMEOUT=50ms",
			"TRACEDBG_CONFIG=/etc/tracedbg.toml",
			"HOME=/root",
		}
	}

	config, err := l.Load()
	require.NoError(t, err)

	v, _ := GetByPath(config, "logging.level")
	assert.Equal(t, "debug", v)
	v, _ = GetByPath(config, "server.maxContentLength")
	assert.Equal(t, int64(2048), v)
	v, _ = GetByPath(config, "debugger.conditionTimeout")
	assert.Equal(t, 50*time.Millisecond, v)

	_, ok := GetByPath(config, "config")
	assert.False(t, ok)
	assert.Len(t, config, 3)
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader("TRACEDBG_", nil)

	tests := []struct {
		env  string
		want string
	}{
		{"TRACEDBG_SERVER_LISTEN", "server.listen"},
		{"TRACEDBG_DEBUGGER_STOP_ON_ENTRY", "debugger.stopOnEntry"},
		{"TRACEDBG_TELEMETRY_ENABLED", "telemetry.enabled"},
		{"TRACEDBG_VERBOSE", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			assert.Equal(t, tt.want, l.envToPath(tt.env))
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"off", false},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"2s", 2 * time.Second},
		{"127.0.0.1:4711", "127.0.0.1:4711"},
		{"debug", "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.in))
		})
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"logging": map[string]any{"level": "info", "format": "text"},
		"server":  map[string]any{"listen": ""},
	}
	src := map[string]any{
		"logging": map[string]any{"level": "debug"},
		"server":  "replaced",
	}

	got := DeepMerge(dst, src)
	v, _ := GetByPath(got, "logging.level")
	assert.Equal(t, "debug", v)
	v, _ = GetByPath(got, "logging.format")
	assert.Equal(t, "text", v)
	assert.Equal(t, "replaced", got["server"])
}

func TestSetByPath(t *testing.T) {
	data := map[string]any{"debugger": "scalar"}
	SetByPath(data, "debugger.exceptions.assert", false)

	v, ok := GetByPath(data, "debugger.exceptions.assert")
	require.True(t, ok)
	assert.Equal(t, false, v)

	_, ok = GetByPath(data, "debugger.exceptions.assert.deeper")
	assert.False(t, ok)
}
