package cerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := NewError(NotFound, "task not found", nil)
	assert.Equal(t, "[not_found] task not found", err.Error())
	assert.Empty(t, err.Stack, "recoverable codes carry no stack")

	underlying := errors.New("boom")
	err = NewError(Internal, "store broke", underlying)
	assert.Equal(t, "[internal] store broke: boom", err.Error())
	assert.NotEmpty(t, err.Stack)
	assert.ErrorIs(t, err, underlying)
}

func TestIsCode(t *testing.T) {
	err := NewError(AlreadyExists, "duplicate", nil)
	assert.True(t, IsCode(err, AlreadyExists))
	assert.False(t, IsCode(err, NotFound))

	// works through wrapping
	wrapped := fmt.Errorf("context: %w", err)
	assert.True(t, IsCode(wrapped, AlreadyExists))

	assert.False(t, IsCode(errors.New("plain"), AlreadyExists))
	assert.False(t, IsCode(nil, AlreadyExists))
}

func TestMessage(t *testing.T) {
	err := NewError(InvalidArgument, "task name must be a single word", nil)
	assert.Equal(t, "task name must be a single word", Message(err))
	assert.Equal(t, "something went wrong", Message(errors.New("internal detail")))
}
