package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrapf(cause, ErrCodeUpstream, "submit %s", "music")

	assert.Equal(t, "submit music: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsUpstream(fmt.Errorf("outer: %w", err)))
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "x"))
}

func TestConstructors(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("generation %s not found", "abc")))
	assert.True(t, IsConflict(Conflictf("duplicate")))
	assert.True(t, IsValidation(Validationf("bad %d", 1)))

	fieldErr := ValidationField("kind", "unknown kind")
	require.True(t, IsValidation(fieldErr))
	assert.Equal(t, "kind", GetField(fieldErr))
	assert.Equal(t, "unknown kind", fieldErr.Error())

	assert.Equal(t, ErrCodeInternal, GetCode(Internalf("oops")))
	assert.Empty(t, GetCode(errors.New("plain")))
}
