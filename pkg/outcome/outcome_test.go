package outcome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	o := Success(42)

	require.True(t, o.IsSuccess())

	v, err := o.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Nil(t, o.Err())
}

func TestFailure(t *testing.T) {
	sentinel := errors.New("probe failed")
	o := Failure[int](sentinel)

	require.False(t, o.IsSuccess())

	v, err := o.Get()
	assert.ErrorIs(t, err, sentinel)
	assert.Zero(t, v)
	assert.ErrorIs(t, o.Err(), sentinel)
}

func TestAttempt(t *testing.T) {
	t.Run("captures returned value", func(t *testing.T) {
		o := Attempt(func() (string, error) { return "hello", nil })
		require.True(t, o.IsSuccess())
		assert.Equal(t, "hello", o.GetOrElse(""))
	})

	t.Run("captures returned error", func(t *testing.T) {
		sentinel := errors.New("boom")
		o := Attempt(func() (string, error) { return "", sentinel })
		require.False(t, o.IsSuccess())
		assert.ErrorIs(t, o.Err(), sentinel)
	})
}

func TestGetOrElse(t *testing.T) {
	assert.Equal(t, 7, Success(7).GetOrElse(0))
	assert.Equal(t, 0, Failure[int](errors.New("nope")).GetOrElse(0))
}

func TestMap(t *testing.T) {
	t.Run("transforms success", func(t *testing.T) {
		o := Map(Success(21), func(v int) int { return v * 2 })
		require.True(t, o.IsSuccess())
		assert.Equal(t, 42, o.GetOrElse(0))
	})

	t.Run("failure is inert", func(t *testing.T) {
		sentinel := errors.New("inert")
		called := false
		o := Map(Failure[int](sentinel), func(v int) string {
			called = true
			return "unreachable"
		})
		assert.False(t, called)
		assert.ErrorIs(t, o.Err(), sentinel)
	})

	t.Run("changes value type", func(t *testing.T) {
		o := Map(Success(3), func(v int) bool { return v > 0 })
		assert.True(t, o.GetOrElse(false))
	})
}

func TestHandleError(t *testing.T) {
	t.Run("recovers failure", func(t *testing.T) {
		o := Failure[bool](errors.New("offline check failed")).
			HandleError(func(error) bool { return false })
		require.True(t, o.IsSuccess())
		assert.False(t, o.GetOrElse(true))
	})

	t.Run("success passes through", func(t *testing.T) {
		o := Success(true).HandleError(func(error) bool { return false })
		assert.True(t, o.GetOrElse(false))
	})
}
