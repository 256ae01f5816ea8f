package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := NewDB(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer d.Close()

	_, ok, err := d.Get(ctx, "streak_state")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Set(ctx, "streak_state", `{"count":3}`))
	value, ok, err := d.Get(ctx, "streak_state")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"count":3}`, value)

	// Upsert overwrites in place.
	require.NoError(t, d.Set(ctx, "streak_state", `{"count":4}`))
	value, _, err = d.Get(ctx, "streak_state")
	require.NoError(t, err)
	assert.Equal(t, `{"count":4}`, value)
}

func TestReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "state.db")

	d, err := NewDB(dsn)
	require.NoError(t, err)
	require.NoError(t, d.Set(ctx, "k", "v"))
	require.NoError(t, d.Close())

	d, err = NewDB(dsn)
	require.NoError(t, err)
	defer d.Close()
	value, ok, err := d.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}

func TestNewDBRequiresDSN(t *testing.T) {
	_, err := NewDB("")
	assert.Error(t, err)
}
