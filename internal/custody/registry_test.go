package custody

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Transfer(t *testing.T) {
	r := NewRegistry()
	r.Mint("t1", "alice", 500)
	ctx := context.Background()

	require.ErrorIs(t, r.TransferCustody(ctx, "t1", "bob", "carol"), ErrNotHolder)
	require.NoError(t, r.TransferCustody(ctx, "t1", "alice", "bob"))

	owner, err := r.OwnerOf(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	// royalty stays with the creator
	to, bps, err := r.RoyaltyInfo(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "alice", to)
	assert.Equal(t, int64(500), bps)

	_, err = r.OwnerOf(ctx, "nope")
	require.ErrorIs(t, err, ErrUnknownToken)
	require.ErrorIs(t, r.TransferCustody(ctx, "nope", "a", "b"), ErrUnknownToken)
}

func TestRegistry_Seed(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Seed([]string{"t1:alice:500", " t2:bob:0 "}))

	owner, err := r.OwnerOf(context.Background(), "t2")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	require.Error(t, r.Seed([]string{"t3:carol"}))
	require.Error(t, r.Seed([]string{"t3:carol:lots"}))
	require.Error(t, r.Seed([]string{":carol:1"}))
}
