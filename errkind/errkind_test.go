package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapNilReturnsNil(t *testing.T) {
	require.NoError(t, Wrap(nil, Fatal))
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := Wrap(errors.New("bad password"), AuthFailed)
	require.True(t, Is(err, AuthFailed))
	require.False(t, Is(err, Conflict))
}

func TestKindOfDefaultsToFatalForUntaggedError(t *testing.T) {
	require.Equal(t, Fatal, KindOf(errors.New("untagged")))
}

func TestKindOfReturnsAttachedKind(t *testing.T) {
	err := New(Conflict, "duplicate id %d", 7)
	require.Equal(t, Conflict, KindOf(err))
}

func TestNewFormatsMessage(t *testing.T) {
	err := New(NotFound, "payment %d missing", 42)
	require.Contains(t, err.Error(), "payment 42 missing")
}
