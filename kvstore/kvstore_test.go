package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireDirectoryLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()

	release, err := AcquireDirectoryLock(dir)
	require.NoError(t, err)

	_, err = AcquireDirectoryLock(dir)
	require.Error(t, err)

	require.NoError(t, release())
}

func TestAcquireDirectoryLockReacquirableAfterRelease(t *testing.T) {
	dir := t.TempDir()

	release, err := AcquireDirectoryLock(dir)
	require.NoError(t, err)
	require.NoError(t, release())

	release2, err := AcquireDirectoryLock(dir)
	require.NoError(t, err)
	require.NoError(t, release2())
}
