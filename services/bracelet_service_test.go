package services

import (
	"testing"
	"time"

	"leguardian-http-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestBraceletService(t *testing.T) (*BraceletService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	svc := NewBraceletService(db, testConfig(), setupTestRedis(t)).(*BraceletService)
	return svc, db
}

func TestPairBracelet(t *testing.T) {
	svc, db := newTestBraceletService(t)
	createBracelet(t, db, "LG-PAIR-001")
	guardian := createGuardian(t, db, "pair@example.com")

	bracelet, err := svc.PairBracelet(guardian.ID, "LG-PAIR-001", "Emma")
	require.NoError(t, err)
	assert.True(t, bracelet.IsPaired)
	assert.Equal(t, "Emma", bracelet.Alias)
	assert.NotNil(t, bracelet.PairedAt)

	var owner models.BraceletGuardian
	require.NoError(t, db.Where("bracelet_id = ? AND guardian_id = ?", bracelet.ID, guardian.ID).First(&owner).Error)
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.True(t, owner.CanEdit)
	assert.True(t, owner.CanViewLocation)
	assert.True(t, owner.CanViewEvents)
	assert.True(t, owner.CanSendCommands)
	assert.NotNil(t, owner.AcceptedAt, "the owner link needs no invitation")
}

func TestPairBraceletAlreadyPaired(t *testing.T) {
	svc, db := newTestBraceletService(t)
	createBracelet(t, db, "LG-PAIR-002")
	first := createGuardian(t, db, "first@example.com")
	second := createGuardian(t, db, "second@example.com")

	_, err := svc.PairBracelet(first.ID, "LG-PAIR-002", "")
	require.NoError(t, err)

	_, err = svc.PairBracelet(second.ID, "LG-PAIR-002", "")
	assert.ErrorIs(t, err, ErrAlreadyPaired)
}

func TestPairBraceletUnknownCode(t *testing.T) {
	svc, db := newTestBraceletService(t)
	guardian := createGuardian(t, db, "nocode@example.com")

	_, err := svc.PairBracelet(guardian.ID, "LG-NOPE-000", "")
	assert.ErrorIs(t, err, ErrBraceletNotFound)
}

func TestGetAvailableBracelets(t *testing.T) {
	svc, db := newTestBraceletService(t)
	createBracelet(t, db, "LG-AVAIL-01")
	createBracelet(t, db, "LG-AVAIL-02")
	guardian := createGuardian(t, db, "avail@example.com")

	available, err := svc.GetAvailableBracelets()
	require.NoError(t, err)
	assert.Len(t, available, 2)

	_, err = svc.PairBracelet(guardian.ID, "LG-AVAIL-01", "")
	require.NoError(t, err)

	available, err = svc.GetAvailableBracelets()
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "LG-AVAIL-02", available[0].UniqueCode)
}

func TestUnpairBracelet(t *testing.T) {
	svc, db := newTestBraceletService(t)
	createBracelet(t, db, "LG-UNPAIR-1")
	owner := createGuardian(t, db, "unpair@example.com")
	shared := createGuardian(t, db, "sharedun@example.com")

	bracelet, err := svc.PairBracelet(owner.ID, "LG-UNPAIR-1", "Leo")
	require.NoError(t, err)
	linkGuardian(t, db, bracelet.ID, shared.ID, models.RoleShared, allCaps())
	createZone(t, db, bracelet.ID, "School", squarePolygon())

	require.NoError(t, svc.UnpairBracelet(owner.ID, bracelet.ID))

	var reloaded models.Bracelet
	require.NoError(t, db.First(&reloaded, bracelet.ID).Error)
	assert.False(t, reloaded.IsPaired)
	assert.Nil(t, reloaded.PairedAt)
	assert.Empty(t, reloaded.Alias)
	assert.Equal(t, models.BraceletStatusInactive, reloaded.Status)

	var links, zones int64
	require.NoError(t, db.Model(&models.BraceletGuardian{}).Where("bracelet_id = ?", bracelet.ID).Count(&links).Error)
	require.NoError(t, db.Model(&models.SafetyZone{}).Where("bracelet_id = ?", bracelet.ID).Count(&zones).Error)
	assert.Zero(t, links, "all guardian links are removed")
	assert.Zero(t, zones, "all safety zones are removed")

	// The device can be claimed again afterwards
	_, err = svc.PairBracelet(shared.ID, "LG-UNPAIR-1", "")
	require.NoError(t, err)
}

func TestUnpairBraceletOwnerOnly(t *testing.T) {
	svc, db := newTestBraceletService(t)
	createBracelet(t, db, "LG-UNPAIR-2")
	owner := createGuardian(t, db, "theowner@example.com")
	shared := createGuardian(t, db, "notowner@example.com")

	bracelet, err := svc.PairBracelet(owner.ID, "LG-UNPAIR-2", "")
	require.NoError(t, err)
	linkGuardian(t, db, bracelet.ID, shared.ID, models.RoleShared, allCaps())

	err = svc.UnpairBracelet(shared.ID, bracelet.ID)
	assert.ErrorIs(t, err, ErrBraceletForbidden)
}

func TestGetBracelets(t *testing.T) {
	svc, db := newTestBraceletService(t)
	guardian := createGuardian(t, db, "list@example.com")

	first := createBracelet(t, db, "LG-LIST-A")
	second := createBracelet(t, db, "LG-LIST-B")
	linkGuardian(t, db, first.ID, guardian.ID, models.RoleOwner, allCaps())

	// Pending invitation: must not appear
	require.NoError(t, db.Create(&models.BraceletGuardian{
		BraceletID: second.ID,
		GuardianID: guardian.ID,
		Role:       models.RoleShared,
	}).Error)

	links, err := svc.GetBracelets(guardian.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, first.ID, links[0].Bracelet.ID)
}

func TestGetBraceletHidesLocationWithoutCapability(t *testing.T) {
	svc, db := newTestBraceletService(t)
	bracelet := createBracelet(t, db, "LG-HIDE-001")
	now := time.Now()
	require.NoError(t, db.Model(bracelet).Updates(map[string]interface{}{
		"last_latitude":        48.85,
		"last_longitude":       2.35,
		"last_location_update": now,
	}).Error)

	viewer := createGuardian(t, db, "canview@example.com")
	blind := createGuardian(t, db, "noview@example.com")
	linkGuardian(t, db, bracelet.ID, viewer.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, blind.ID, models.RoleShared, CapabilityFlags{CanViewEvents: true})

	visible, _, err := svc.GetBracelet(viewer.ID, bracelet.ID)
	require.NoError(t, err)
	require.NotNil(t, visible.LastLatitude)

	hidden, link, err := svc.GetBracelet(blind.ID, bracelet.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden.LastLatitude)
	assert.Nil(t, hidden.LastLongitude)
	assert.Nil(t, hidden.LastLocationUpdate)
	assert.False(t, link.CanViewLocation)
}

func TestUpdateBracelet(t *testing.T) {
	svc, db := newTestBraceletService(t)
	bracelet := createBracelet(t, db, "LG-EDIT-001")
	editor := createGuardian(t, db, "editor@example.com")
	reader := createGuardian(t, db, "reader@example.com")
	linkGuardian(t, db, bracelet.ID, editor.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, reader.ID, models.RoleShared, CapabilityFlags{CanViewLocation: true})

	updated, err := svc.UpdateBracelet(editor.ID, bracelet.ID, map[string]interface{}{
		"alias":  "Nina",
		"status": models.BraceletStatusEmergency,
	})
	require.NoError(t, err)
	assert.Equal(t, "Nina", updated.Alias)
	assert.Equal(t, models.BraceletStatusActive, updated.Status, "status is not an editable field")

	_, err = svc.UpdateBracelet(reader.ID, bracelet.ID, map[string]interface{}{"alias": "X"})
	assert.ErrorIs(t, err, ErrBraceletForbidden)
}

func TestGetLocation(t *testing.T) {
	svc, db := newTestBraceletService(t)
	bracelet := createBracelet(t, db, "LG-LOC-0001")
	guardian := createGuardian(t, db, "loc@example.com")
	blind := createGuardian(t, db, "locblind@example.com")
	linkGuardian(t, db, bracelet.ID, guardian.ID, models.RoleOwner, allCaps())
	linkGuardian(t, db, bracelet.ID, blind.ID, models.RoleShared, CapabilityFlags{CanViewEvents: true})

	// No fix yet
	location, err := svc.GetLocation(guardian.ID, bracelet.ID)
	require.NoError(t, err)
	assert.Nil(t, location)

	require.NoError(t, db.Model(bracelet).Updates(map[string]interface{}{
		"last_latitude":        48.85,
		"last_longitude":       2.35,
		"last_accuracy":        8,
		"last_location_update": time.Now(),
	}).Error)

	location, err = svc.GetLocation(guardian.ID, bracelet.ID)
	require.NoError(t, err)
	require.NotNil(t, location)
	assert.Equal(t, 48.85, location.Latitude)
	assert.Equal(t, 2.35, location.Longitude)
	require.NotNil(t, location.Accuracy)
	assert.Equal(t, 8, *location.Accuracy)

	_, err = svc.GetLocation(blind.ID, bracelet.ID)
	assert.ErrorIs(t, err, ErrBraceletForbidden)
}
