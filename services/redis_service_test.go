package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZoneMembershipCache(t *testing.T) {
	svc := setupTestRedis(t)

	// Cold cache: nothing known
	_, known, err := svc.GetZoneMembership(1, 10)
	require.NoError(t, err)
	assert.False(t, known)

	require.NoError(t, svc.SetZoneMembership(1, 10, true))
	inside, known, err := svc.GetZoneMembership(1, 10)
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, inside)

	require.NoError(t, svc.SetZoneMembership(1, 10, false))
	inside, known, err = svc.GetZoneMembership(1, 10)
	require.NoError(t, err)
	assert.True(t, known)
	assert.False(t, inside)
}

func TestClearZoneMembership(t *testing.T) {
	svc := setupTestRedis(t)

	// Two bracelets tracked against the same zone, one against another
	require.NoError(t, svc.SetZoneMembership(1, 10, true))
	require.NoError(t, svc.SetZoneMembership(2, 10, false))
	require.NoError(t, svc.SetZoneMembership(1, 20, true))

	require.NoError(t, svc.ClearZoneMembership(10))

	_, known, err := svc.GetZoneMembership(1, 10)
	require.NoError(t, err)
	assert.False(t, known)
	_, known, err = svc.GetZoneMembership(2, 10)
	require.NoError(t, err)
	assert.False(t, known)

	// The other zone survives
	_, known, err = svc.GetZoneMembership(1, 20)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestClearBraceletMembership(t *testing.T) {
	svc := setupTestRedis(t)

	require.NoError(t, svc.SetZoneMembership(1, 10, true))
	require.NoError(t, svc.SetZoneMembership(1, 20, true))
	require.NoError(t, svc.SetZoneMembership(2, 10, true))

	require.NoError(t, svc.ClearBraceletMembership(1))

	_, known, err := svc.GetZoneMembership(1, 10)
	require.NoError(t, err)
	assert.False(t, known)
	_, known, err = svc.GetZoneMembership(1, 20)
	require.NoError(t, err)
	assert.False(t, known)

	// The other bracelet survives
	_, known, err = svc.GetZoneMembership(2, 10)
	require.NoError(t, err)
	assert.True(t, known)
}

func TestSetGetDelete(t *testing.T) {
	svc := setupTestRedis(t)

	type snapshot struct {
		Battery int    `json:"battery"`
		Code    string `json:"code"`
	}

	require.NoError(t, svc.Set("bracelet:snapshot:1", snapshot{Battery: 80, Code: "LG-A"}, time.Minute))

	var got snapshot
	require.NoError(t, svc.Get("bracelet:snapshot:1", &got))
	assert.Equal(t, 80, got.Battery)
	assert.Equal(t, "LG-A", got.Code)

	require.NoError(t, svc.Delete("bracelet:snapshot:1"))
	assert.Error(t, svc.Get("bracelet:snapshot:1", &got))
}

func TestPing(t *testing.T) {
	svc := setupTestRedis(t)
	assert.NoError(t, svc.Ping())
}
