package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	err := newError(ErrFileLoad, cause, "Could not load API file %s", "dog.yaml")

	assert.Equal(t, "file load failed: Could not load API file dog.yaml: disk on fire", err.Error())
	assert.ErrorIs(t, err, ErrFileLoad)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrBadArgument)

	wrapped := fmt.Errorf("outer: %w", err)
	var regErr *Error
	assert.True(t, errors.As(wrapped, &regErr))
	assert.Equal(t, "Could not load API file dog.yaml", regErr.Reason)
}

func TestError_NoReason(t *testing.T) {
	t.Parallel()

	err := newError(ErrNotInitialized, nil, "")
	assert.Equal(t, "registry not initialized", err.Error())
	assert.Nil(t, err.Unwrap())
}
