// Package config provides layered configuration for tracedbg.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Command Line Flags      │  ← Highest priority
//	├─────────────────────────────┤
//	│  3. Environment Variables   │  ← TRACEDBG_*
//	├─────────────────────────────┤
//	│  2. Configuration File      │  ← tracedbg.toml / tracedbg.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Settings are read through section accessors (Logging, Server, Debugger,
// Telemetry) which return snapshot structs. A value of the wrong type falls
// back to its default and is reported by Errors.
//
// # Sub-packages
//
//   - loader: Configuration file loading (TOML, YAML, environment variables)
package config
