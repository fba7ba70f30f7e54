package deadline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

func TestResolve_NoDeadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := Resolve("0", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, res.None)
	assert.Equal(t, "No deadline", res.Format())

	// surrounding whitespace does not change the meaning
	res, err = Resolve("  0  ", now, time.UTC)
	require.NoError(t, err)
	assert.True(t, res.None)
}

func TestResolve_RelativeInReferenceZone(t *testing.T) {
	ref := time.FixedZone("UTC+1", 3600)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := Resolve("in 2 days", now, ref)
	require.NoError(t, err)
	require.False(t, res.None)
	assert.True(t, res.At.Equal(now.Add(48*time.Hour)), "expected %v, got %v", now.Add(48*time.Hour), res.At)
	assert.Equal(t, 1.0, res.TZ.Hours)
}

func TestResolve_AbsoluteInReferenceZone(t *testing.T) {
	ref := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	res, err := Resolve("2035-03-01 15:00", now, ref)
	require.NoError(t, err)
	require.False(t, res.None)
	// 15:00 at UTC+2 is 13:00 UTC
	want := time.Date(2035, 3, 1, 13, 0, 0, 0, time.UTC)
	assert.True(t, res.At.Equal(want), "expected %v, got %v", want, res.At)
	assert.Equal(t, 2.0, res.TZ.Hours)
}

func TestResolve_PastIsOutOfRange(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := Resolve("2001-01-01", now, time.UTC)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.OutOfRange))

	var oor *OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, 2001, oor.At.Year())
}

func TestResolve_Unparseable(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := Resolve("gibberish", now, time.UTC)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument))
}

func TestResolvedFormat(t *testing.T) {
	res := Resolved{
		At: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC),
		TZ: TZ{Name: "UTC"},
	}
	assert.Equal(t, "15-Jun-2024 12:00 UTC", res.Format())
}
