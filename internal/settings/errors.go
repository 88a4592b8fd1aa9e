package settings

import (
	"errors"
	"fmt"
)

var (
	ErrSettingNotFound = errors.New("settings: key not found")
	ErrTypeMismatch    = errors.New("settings: type mismatch")

	// ErrInvalidPath is returned for a group path that runs through a
	// plain value, e.g. "windows.Clock_Window.module.x".
	ErrInvalidPath = errors.New("settings: invalid group path")

	ErrStoreClosed = errors.New("settings: snapshot store closed")
)

// ParseError is returned when a settings or snapshot file on disk cannot
// be decoded. The file is left untouched.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TypeError is returned when a typed getter finds a value of another type.
type TypeError struct {
	Key      string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("settings: %s is %s, not %s", e.Key, e.Actual, e.Expected)
}

func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
