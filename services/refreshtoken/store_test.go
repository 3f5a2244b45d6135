package refreshtoken

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confportal/authcore/testutils"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	return NewGormStore(testutils.SetupTestDB(t, &Device{}, &RefreshToken{}))
}

func insertTestToken(t *testing.T, store *GormStore, mutate func(*RefreshToken)) *RefreshToken {
	t.Helper()

	token := &RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		FamilyID:  uuid.New(),
		TokenHash: uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	if mutate != nil {
		mutate(token)
	}

	require.NoError(t, store.InsertToken(context.Background(), token))
	return token
}

func TestGormStore_UpsertDevice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	deviceID := uuid.New()
	userID := uuid.New()
	firstSeen := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)

	require.NoError(t, store.UpsertDevice(ctx, &Device{
		ID:            deviceID,
		UserID:        userID,
		DeviceName:    "Firefox 120.0 on Linux",
		FirstSeenAt:   firstSeen,
		LastSeenAt:    firstSeen,
		LastIP:        "203.0.113.1",
		LastUserAgent: "old-agent",
	}))

	lastSeen := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpsertDevice(ctx, &Device{
		ID:            deviceID,
		UserID:        userID,
		DeviceName:    "Firefox 121.0 on Linux",
		FirstSeenAt:   lastSeen,
		LastSeenAt:    lastSeen,
		LastIP:        "203.0.113.2",
		LastUserAgent: "new-agent",
	}))

	var device Device
	require.NoError(t, store.db.First(&device, "id = ?", deviceID).Error)

	// conflict path refreshes last-seen columns but never first_seen_at
	assert.Equal(t, firstSeen.Unix(), device.FirstSeenAt.Unix())
	assert.Equal(t, lastSeen.Unix(), device.LastSeenAt.Unix())
	assert.Equal(t, "203.0.113.2", device.LastIP)
	assert.Equal(t, "new-agent", device.LastUserAgent)
	assert.Equal(t, "Firefox 121.0 on Linux", device.DeviceName)

	var count int64
	require.NoError(t, store.db.Model(&Device{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormStore_UpdateDevice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	device := &Device{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DeviceName:  "Firefox 120.0 on Linux",
		FirstSeenAt: time.Now().UTC(),
		LastSeenAt:  time.Now().UTC(),
		LastIP:      "203.0.113.1",
	}
	require.NoError(t, store.UpsertDevice(ctx, device))

	require.NoError(t, store.UpdateDevice(ctx, device.ID, map[string]any{
		"device_name": "Work Laptop",
		"last_ip":     "203.0.113.9",
	}))

	var updated Device
	require.NoError(t, store.db.First(&updated, "id = ?", device.ID).Error)
	assert.Equal(t, "Work Laptop", updated.DeviceName)
	assert.Equal(t, "203.0.113.9", updated.LastIP)
	assert.Equal(t, device.FirstSeenAt.Unix(), updated.FirstSeenAt.Unix())
}

func TestGormStore_FindTokenByHash(t *testing.T) {
	store := newTestStore(t)

	token := insertTestToken(t, store, nil)

	found, err := store.FindTokenByHash(context.Background(), token.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)

	_, err = store.FindTokenByHash(context.Background(), "missing-hash")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestGormStore_TokenHashIsUnique(t *testing.T) {
	store := newTestStore(t)

	token := insertTestToken(t, store, nil)

	err := store.InsertToken(context.Background(), &RefreshToken{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		FamilyID:  uuid.New(),
		TokenHash: token.TokenHash,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestGormStore_MarkTokenReplaced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	token := insertTestToken(t, store, nil)
	firstChild := uuid.New()
	secondChild := uuid.New()
	usedAt := time.Now().UTC().Truncate(time.Second)

	marked, err := store.MarkTokenReplaced(ctx, token.ID, firstChild, usedAt)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	var row RefreshToken
	require.NoError(t, store.db.First(&row, "id = ?", token.ID).Error)
	require.NotNil(t, row.ReplacedByID)
	assert.Equal(t, firstChild, *row.ReplacedByID)
	require.NotNil(t, row.LastUsedAt)
	assert.Equal(t, usedAt.Unix(), row.LastUsedAt.Unix())

	// a token can only be spent once: the second stamp matches nothing
	marked, err = store.MarkTokenReplaced(ctx, token.ID, secondChild, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, marked)

	require.NoError(t, store.db.First(&row, "id = ?", token.ID).Error)
	assert.Equal(t, firstChild, *row.ReplacedByID)
}

func TestGormStore_UpdateAllByFamily(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	familyID := uuid.New()
	first := insertTestToken(t, store, func(rt *RefreshToken) { rt.FamilyID = familyID })
	second := insertTestToken(t, store, func(rt *RefreshToken) { rt.FamilyID = familyID })
	other := insertTestToken(t, store, nil)

	newExpiry := time.Now().UTC().Add(30 * time.Minute).Truncate(time.Second)
	require.NoError(t, store.UpdateAllByFamily(ctx, familyID, map[string]any{
		"expires_at": newExpiry,
	}))

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		var row RefreshToken
		require.NoError(t, store.db.First(&row, "id = ?", id).Error)
		assert.Equal(t, newExpiry.Unix(), row.ExpiresAt.Unix())
	}

	var untouched RefreshToken
	require.NoError(t, store.db.First(&untouched, "id = ?", other.ID).Error)
	assert.Equal(t, other.ExpiresAt.Unix(), untouched.ExpiresAt.Unix())
}

func TestGormStore_RevokeFamily(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	familyID := uuid.New()
	first := insertTestToken(t, store, func(rt *RefreshToken) { rt.FamilyID = familyID })
	second := insertTestToken(t, store, func(rt *RefreshToken) { rt.FamilyID = familyID })
	other := insertTestToken(t, store, nil)

	affected, err := store.RevokeFamily(ctx, familyID, time.Now().UTC(), ReasonLogout)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		var row RefreshToken
		require.NoError(t, store.db.First(&row, "id = ?", id).Error)
		require.NotNil(t, row.RevokedAt)
		assert.Equal(t, ReasonLogout, row.RevokedReason)
	}

	var untouched RefreshToken
	require.NoError(t, store.db.First(&untouched, "id = ?", other.ID).Error)
	assert.Nil(t, untouched.RevokedAt)

	// already revoked rows are skipped on the second pass
	affected, err = store.RevokeFamily(ctx, familyID, time.Now().UTC(), ReasonManual)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestGormStore_DeleteExpiredBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale := insertTestToken(t, store, func(rt *RefreshToken) {
		rt.ExpiresAt = time.Now().UTC().Add(-48 * time.Hour)
	})
	fresh := insertTestToken(t, store, nil)

	deleted, err := store.DeleteExpiredBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, store.db.Model(&RefreshToken{}).Where("id = ?", stale.ID).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, store.db.Model(&RefreshToken{}).Where("id = ?", fresh.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormStore_TransactionRollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.InsertToken(ctx, &RefreshToken{
			ID:        uuid.New(),
			UserID:    uuid.New(),
			FamilyID:  uuid.New(),
			TokenHash: "tx-hash",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = store.FindTokenByHash(ctx, "tx-hash")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
