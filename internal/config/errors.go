package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrSettingNotFound indicates no layer defines the setting.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates a setting holds a value of the wrong type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrFileNotFound indicates an explicitly named configuration file is missing.
	ErrFileNotFound = errors.New("config file not found")

	// ErrInvalidPath indicates a malformed dotted setting path.
	ErrInvalidPath = errors.New("invalid setting path")
)

// TypeError reports a setting whose value cannot be used as the expected type.
type TypeError struct {
	// Path is the setting path.
	Path string
	// Layer is the layer that supplied the value.
	Layer Layer
	// Expected is the expected type name.
	Expected string
	// Actual describes the value found.
	Actual string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s (from %s): expected %s, got %s", e.Path, e.Layer, e.Expected, e.Actual)
}

// Is matches ErrTypeMismatch.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
