package writeguard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
	"github.com/bluecrabdb/bluecrab/internal/writeguard"
)

func TestTryAcquireThenReleaseAllowsReacquire(t *testing.T) {
	g := writeguard.New()
	require.NoError(t, g.TryAcquire())
	g.Release()
	assert.NoError(t, g.TryAcquire())
	g.Release()
}

func TestSecondAcquireConflicts(t *testing.T) {
	g := writeguard.New()
	require.NoError(t, g.TryAcquire())
	defer g.Release()

	err := g.TryAcquire()
	assert.ErrorIs(t, err, bcerr.ErrConflict)
}

func TestWithWriteReleasesOnSuccess(t *testing.T) {
	g := writeguard.New()
	require.NoError(t, g.WithWrite(func() error { return nil }))
	assert.NoError(t, g.TryAcquire())
	g.Release()
}

func TestWithWriteReleasesOnError(t *testing.T) {
	g := writeguard.New()
	sentinel := assert.AnError
	err := g.WithWrite(func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, g.TryAcquire())
	g.Release()
}

func TestWithWriteConflictsWhileHeld(t *testing.T) {
	g := writeguard.New()
	require.NoError(t, g.TryAcquire())
	defer g.Release()

	err := g.WithWrite(func() error { return nil })
	assert.ErrorIs(t, err, bcerr.ErrConflict)
}
