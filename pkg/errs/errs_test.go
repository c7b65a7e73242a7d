package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(Forbidden, "access forbidden")
	assert.Equal(t, Forbidden, KindOf(err))
	assert.True(t, IsForbidden(err))
	assert.False(t, IsNotFound(err))
}

func TestKindOfWrapped(t *testing.T) {
	inner := New(Conflict, "username already exists")
	outer := fmt.Errorf("register: %w", inner)
	assert.Equal(t, Conflict, KindOf(outer))
	assert.Equal(t, "username already exists", MessageOf(outer))
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("connection refused")
	assert.Equal(t, Kind(0), KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestWrapUnwrap(t *testing.T) {
	inner := errors.New("driver: bad connection")
	err := Wrap(NotFound, "certificate not found", inner)
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "not_found")
	assert.Contains(t, err.Error(), "certificate not found")
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "forbidden", Forbidden.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "conflict", Conflict.String())
	assert.Equal(t, "invalid_input", InvalidInput.String())
}
