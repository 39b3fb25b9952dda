package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewfBuildsAFormattedError(t *testing.T) {
	err := Newf("bad value %d", 42).Component("test").Category(CategoryValidation).Build()
	assert.Equal(t, "bad value 42", err.Error())
	assert.Equal(t, "test", err.Component())
	assert.Equal(t, CategoryValidation, err.Category())
}

func TestWrapPreservesUnwrap(t *testing.T) {
	underlying := errors.New("disk error")
	err := Wrap(underlying).Component("audioreader").Category(CategoryResource).Build()

	assert.ErrorIs(t, err, underlying)
	assert.Equal(t, underlying, errors.Unwrap(err))
}

func TestContextAccumulatesKeys(t *testing.T) {
	err := Newf("oops").Context("frame", 123).Context("channel", 0).Build()
	ctx := err.Context()
	assert.Equal(t, 123, ctx["frame"])
	assert.Equal(t, 0, ctx["channel"])
}

func TestCategoryOfUnwrapsThroughFmtErrorf(t *testing.T) {
	inner := Newf("inner failure").Category(CategoryAudio).Build()
	wrapped := fmt.Errorf("outer context: %w", inner)
	assert.Equal(t, CategoryAudio, CategoryOf(wrapped))
}

func TestCategoryOfReturnsEmptyForPlainError(t *testing.T) {
	assert.Equal(t, Category(""), CategoryOf(errors.New("plain")))
}

func TestIsComparesByCategory(t *testing.T) {
	a := Newf("a").Category(CategoryIO).Build()
	b := Newf("b").Category(CategoryIO).Build()
	c := Newf("c").Category(CategoryAudio).Build()

	assert.True(t, errors.Is(a, b), "two *Error values with the same category compare equal under errors.Is")
	assert.False(t, errors.Is(a, c))
}

func TestMarkReportedIsIdempotentAndObservable(t *testing.T) {
	err := Newf("oops").Build()
	require.False(t, err.Reported())
	err.MarkReported()
	assert.True(t, err.Reported())
	err.MarkReported()
	assert.True(t, err.Reported(), "a second MarkReported leaves the error reported")
}

func TestComponentDefaultsToUnknown(t *testing.T) {
	err := Newf("oops").Build()
	assert.Equal(t, ComponentUnknown, err.Component())
}
