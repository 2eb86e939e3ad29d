package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevoker(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	r := NewMemoryRevoker()
	r.nowFunc = func() time.Time { return now }

	revoked, err := r.IsRevoked(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "tok-1", now.Add(time.Hour)))
	revoked, _ = r.IsRevoked(ctx, "tok-1")
	assert.True(t, revoked)

	// already expired tokens are not kept
	require.NoError(t, r.Revoke(ctx, "tok-2", now.Add(-time.Minute)))
	revoked, _ = r.IsRevoked(ctx, "tok-2")
	assert.False(t, revoked)

	// revocations lapse with the token
	now = now.Add(2 * time.Hour)
	revoked, _ = r.IsRevoked(ctx, "tok-1")
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "tok-3", now.Add(time.Hour)))
	assert.NotContains(t, r.revoked, "tok-1")
}
