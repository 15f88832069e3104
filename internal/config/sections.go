package config

import "time"

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration. Use Config.Set()
// to update configuration values.

// Defaults for numeric settings.
const (
	DefaultMaxContentLength = 10 * 1024 * 1024
	DefaultConditionTimeout = 100 * time.Millisecond
)

// LoggingConfig provides type-safe access to logging settings.
type LoggingConfig struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string

	// Format is the record format ("text" or "json").
	Format string

	// File is the log file path. Empty means standard error.
	File string
}

// ServerConfig provides type-safe access to protocol server settings.
type ServerConfig struct {
	// Listen is the TCP address to accept clients on. Empty serves one
	// session over standard input and output.
	Listen string

	// MaxContentLength caps the size of one protocol message.
	MaxContentLength int
}

// DebuggerConfig provides type-safe access to session settings.
type DebuggerConfig struct {
	// StopOnEntry stops at the first instruction after configurationDone.
	StopOnEntry bool

	// AssertExceptions enables the assert exception filter by default.
	AssertExceptions bool

	// RevertExceptions enables the revert exception filter by default.
	RevertExceptions bool

	// ConditionTimeout bounds one evaluation of a breakpoint condition.
	ConditionTimeout time.Duration
}

// TelemetryConfig provides type-safe access to tracing settings.
type TelemetryConfig struct {
	// Enabled installs the span exporter.
	Enabled bool

	// File receives exported spans. Empty means standard error.
	File string
}

// Logging returns the logging configuration.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:  c.getStringOr("logging.level", "info"),
		Format: c.getStringOr("logging.format", "text"),
		File:   c.getStringOr("logging.file", ""),
	}
}

// Server returns the protocol server configuration.
func (c *Config) Server() ServerConfig {
	return ServerConfig{
		Listen:           c.getStringOr("server.listen", ""),
		MaxContentLength: c.getIntOr("server.maxContentLength", DefaultMaxContentLength),
	}
}

// Debugger returns the session configuration.
func (c *Config) Debugger() DebuggerConfig {
	return DebuggerConfig{
		StopOnEntry:      c.getBoolOr("debugger.stopOnEntry", false),
		AssertExceptions: c.getBoolOr("debugger.exceptions.assert", true),
		RevertExceptions: c.getBoolOr("debugger.exceptions.revert", false),
		ConditionTimeout: c.getDurationOr("debugger.conditionTimeout", DefaultConditionTimeout),
	}
}

// Telemetry returns the telemetry configuration.
func (c *Config) Telemetry() TelemetryConfig {
	return TelemetryConfig{
		Enabled: c.getBoolOr("telemetry.enabled", false),
		File:    c.getStringOr("telemetry.file", ""),
	}
}

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		if err != ErrSettingNotFound {
			// Record type/parse errors - these indicate config problems
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	v, err := c.GetDuration(path)
	if err != nil {
		if err != ErrSettingNotFound {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}
