// Package apperrors provides centralized, categorised error construction
// for sonicvg, with optional telemetry reporting hooks.
package apperrors

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Category groups errors for logging and telemetry purposes.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryResource      Category = "resource-exhaustion"
	CategoryConfiguration Category = "configuration"
	CategoryAudio         Category = "audio-processing"
	CategoryPlugin        Category = "plugin"
	CategoryAlignment     Category = "alignment"
	CategoryIO            Category = "file-io"
	CategoryState         Category = "state"
)

// ComponentUnknown is used when no component was set explicitly.
const ComponentUnknown = "unknown"

// Error wraps an underlying error with component, category and context.
type Error struct {
	err       error
	component string
	category  Category
	context   map[string]any
	timestamp time.Time

	mu       sync.RWMutex
	reported bool
}

func (e *Error) Error() string { return e.err.Error() }
func (e *Error) Unwrap() error { return e.err }

// Is supports errors.Is by delegating to the wrapped error, and treats
// two *Error values as equal when their categories match.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.category == other.category
	}
	return errors.Is(e.err, target)
}

func (e *Error) Component() string { return e.component }
func (e *Error) Category() Category { return e.category }

func (e *Error) Context() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.context == nil {
		return nil
	}
	out := make(map[string]any, len(e.context))
	maps.Copy(out, e.context)
	return out
}

func (e *Error) Timestamp() time.Time { return e.timestamp }

// MarkReported flags this error as already sent to telemetry.
func (e *Error) MarkReported() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reported = true
}

// Reported reports whether MarkReported has been called.
func (e *Error) Reported() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reported
}

// Builder constructs an *Error fluently, mirroring the calling
// convention of the teacher's errors package.
type Builder struct {
	e *Error
}

// Newf starts a new error builder from a formatted message.
func Newf(format string, args ...any) *Builder {
	return &Builder{e: &Error{
		err:       fmt.Errorf(format, args...),
		component: ComponentUnknown,
		timestamp: time.Now(),
	}}
}

// Wrap starts a new error builder around an existing error.
func Wrap(err error) *Builder {
	return &Builder{e: &Error{
		err:       err,
		component: ComponentUnknown,
		timestamp: time.Now(),
	}}
}

func (b *Builder) Component(name string) *Builder {
	b.e.component = name
	return b
}

func (b *Builder) Category(c Category) *Builder {
	b.e.category = c
	return b
}

func (b *Builder) Context(key string, value any) *Builder {
	if b.e.context == nil {
		b.e.context = make(map[string]any)
	}
	b.e.context[key] = value
	return b
}

func (b *Builder) Build() *Error {
	return b.e
}

// CategoryOf returns the category attached to err, or "" if err is not
// (or does not wrap) an *Error.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.category
	}
	return ""
}

// Is re-exports stdlib errors.Is for callers that only import apperrors.
func Is(err, target error) bool { return errors.Is(err, target) }

// As re-exports stdlib errors.As for callers that only import apperrors.
func As(err error, target any) bool { return errors.As(err, target) }
