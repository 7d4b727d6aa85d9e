package services

import (
	"testing"

	"leguardian-http-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDeviceService(t *testing.T) (*DeviceService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	svc := NewDeviceService(db, testConfig(), nil, nil).(*DeviceService)
	return svc, db
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestResolveByCodeAutoRegisters(t *testing.T) {
	svc, db := newTestDeviceService(t)

	bracelet, err := svc.ResolveByCode("LG-NEW-0001")
	require.NoError(t, err)
	assert.Equal(t, "LG-NEW-0001", bracelet.UniqueCode)
	assert.Equal(t, models.BraceletStatusInactive, bracelet.Status)
	assert.False(t, bracelet.IsPaired)

	// A second contact resolves the same record
	again, err := svc.ResolveByCode("LG-NEW-0001")
	require.NoError(t, err)
	assert.Equal(t, bracelet.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.Bracelet{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResolveByCodeEmpty(t *testing.T) {
	svc, _ := newTestDeviceService(t)

	_, err := svc.ResolveByCode("")
	assert.ErrorIs(t, err, ErrBraceletNotFound)
}

func TestProcessHeartbeatUpdatesSnapshot(t *testing.T) {
	svc, _ := newTestDeviceService(t)

	bracelet, _, err := svc.ProcessHeartbeat("LG-HB-0001", HeartbeatInput{
		BatteryLevel:    87,
		Latitude:        floatPtr(48.85),
		Longitude:       floatPtr(2.35),
		Accuracy:        intPtr(12),
		FirmwareVersion: "2.1.0",
	})
	require.NoError(t, err)

	assert.Equal(t, 87, bracelet.BatteryLevel)
	assert.Equal(t, "2.1.0", bracelet.FirmwareVersion)
	require.NotNil(t, bracelet.LastLatitude)
	assert.Equal(t, 48.85, *bracelet.LastLatitude)
	require.NotNil(t, bracelet.LastAccuracy)
	assert.Equal(t, 12, *bracelet.LastAccuracy)
	assert.NotNil(t, bracelet.LastPingAt)
	assert.NotNil(t, bracelet.LastLocationUpdate)
}

func TestProcessHeartbeatLeavesStatusUnchanged(t *testing.T) {
	svc, db := newTestDeviceService(t)

	statuses := []models.BraceletStatus{
		models.BraceletStatusInactive,
		models.BraceletStatusActive,
		models.BraceletStatusLost,
		models.BraceletStatusEmergency,
	}
	for _, status := range statuses {
		bracelet := createBracelet(t, db, "LG-HBST-"+string(status))
		require.NoError(t, db.Model(bracelet).Update("status", status).Error)

		updated, _, err := svc.ProcessHeartbeat(bracelet.UniqueCode, HeartbeatInput{BatteryLevel: 50})
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status, "a periodic ping never changes the alert state")
	}
}

func TestProcessHeartbeatWithoutLocation(t *testing.T) {
	svc, _ := newTestDeviceService(t)

	bracelet, transitions, err := svc.ProcessHeartbeat("LG-NOLOC-001", HeartbeatInput{BatteryLevel: 90})
	require.NoError(t, err)
	assert.Nil(t, bracelet.LastLatitude)
	assert.Nil(t, bracelet.LastLocationUpdate)
	assert.Empty(t, transitions)
}

func TestProcessHeartbeatRunsGeofenceWhenPaired(t *testing.T) {
	db := setupTestDB(t)
	redisService := setupTestRedis(t)
	geofence := NewGeofenceService(db, testConfig(), redisService, nil)
	svc := NewDeviceService(db, testConfig(), geofence, nil).(*DeviceService)

	bracelet := createBracelet(t, db, "LG-GEO-0001")
	require.NoError(t, db.Model(bracelet).Update("is_paired", true).Error)
	createZone(t, db, bracelet.ID, "Home", squarePolygon())

	// First fix inside the zone reports an entry, leaving reports an exit
	_, transitions, err := svc.ProcessHeartbeat(bracelet.UniqueCode, HeartbeatInput{BatteryLevel: 80, Latitude: floatPtr(5), Longitude: floatPtr(5)})
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.EventZoneEntry, transitions[0].EventType)

	_, transitions, err = svc.ProcessHeartbeat(bracelet.UniqueCode, HeartbeatInput{BatteryLevel: 79, Latitude: floatPtr(15), Longitude: floatPtr(15)})
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, models.EventZoneExit, transitions[0].EventType)
}

func TestProcessHeartbeatSkipsGeofenceWhenUnpaired(t *testing.T) {
	db := setupTestDB(t)
	redisService := setupTestRedis(t)
	geofence := NewGeofenceService(db, testConfig(), redisService, nil)
	svc := NewDeviceService(db, testConfig(), geofence, nil).(*DeviceService)

	bracelet := createBracelet(t, db, "LG-GEO-0002")
	createZone(t, db, bracelet.ID, "Home", squarePolygon())

	_, _, err := svc.ProcessHeartbeat(bracelet.UniqueCode, HeartbeatInput{BatteryLevel: 80, Latitude: floatPtr(5), Longitude: floatPtr(5)})
	require.NoError(t, err)

	_, transitions, err := svc.ProcessHeartbeat(bracelet.UniqueCode, HeartbeatInput{BatteryLevel: 79, Latitude: floatPtr(15), Longitude: floatPtr(15)})
	require.NoError(t, err)
	assert.Empty(t, transitions)
}

func TestProcessEventDangerTriggersEmergency(t *testing.T) {
	svc, db := newTestDeviceService(t)
	bracelet := createBracelet(t, db, "LG-DANGER-01")

	event, err := svc.ProcessEvent(bracelet.UniqueCode, EventInput{
		EventType: models.EventDanger,
		Latitude:  floatPtr(48.85),
		Longitude: floatPtr(2.35),
	})
	require.NoError(t, err)
	assert.Equal(t, models.EventDanger, event.EventType)
	assert.False(t, event.Resolved)

	var reloaded models.Bracelet
	require.NoError(t, db.First(&reloaded, bracelet.ID).Error)
	assert.Equal(t, models.BraceletStatusEmergency, reloaded.Status)
	require.NotNil(t, reloaded.LastLatitude)
	assert.Equal(t, 48.85, *reloaded.LastLatitude)
}

func TestProcessEventLost(t *testing.T) {
	svc, db := newTestDeviceService(t)
	bracelet := createBracelet(t, db, "LG-LOST-001")

	_, err := svc.ProcessEvent(bracelet.UniqueCode, EventInput{EventType: models.EventLost})
	require.NoError(t, err)

	var reloaded models.Bracelet
	require.NoError(t, db.First(&reloaded, bracelet.ID).Error)
	assert.Equal(t, models.BraceletStatusLost, reloaded.Status)
}

func TestProcessEventArrivedActivates(t *testing.T) {
	svc, db := newTestDeviceService(t)

	statuses := []models.BraceletStatus{
		models.BraceletStatusInactive,
		models.BraceletStatusLost,
		models.BraceletStatusEmergency,
	}
	for _, status := range statuses {
		bracelet := createBracelet(t, db, "LG-ARR-"+string(status))
		require.NoError(t, db.Model(bracelet).Update("status", status).Error)

		_, err := svc.ProcessEvent(bracelet.UniqueCode, EventInput{
			EventType:    models.EventArrived,
			BatteryLevel: intPtr(64),
		})
		require.NoError(t, err)

		var reloaded models.Bracelet
		require.NoError(t, db.First(&reloaded, bracelet.ID).Error)
		assert.Equal(t, models.BraceletStatusActive, reloaded.Status, "the arrived button clears any alert")
		assert.Equal(t, 64, reloaded.BatteryLevel)
	}
}

func TestProcessEventRejectsZoneTransitions(t *testing.T) {
	svc, db := newTestDeviceService(t)
	bracelet := createBracelet(t, db, "LG-WIRE-001")

	for _, eventType := range []models.EventType{models.EventZoneEntry, models.EventZoneExit, models.EventType("bogus")} {
		_, err := svc.ProcessEvent(bracelet.UniqueCode, EventInput{EventType: eventType})
		assert.ErrorIs(t, err, ErrInvalidEventType)
	}

	var count int64
	require.NoError(t, db.Model(&models.BraceletEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestResetStatus(t *testing.T) {
	svc, db := newTestDeviceService(t)
	bracelet := createBracelet(t, db, "LG-RESET-01")
	require.NoError(t, db.Model(bracelet).Updates(map[string]interface{}{
		"status":         models.BraceletStatusEmergency,
		"emergency_mode": true,
	}).Error)

	reset, err := svc.ResetStatus(bracelet.UniqueCode)
	require.NoError(t, err)
	assert.Equal(t, models.BraceletStatusActive, reset.Status)
	assert.False(t, reset.EmergencyMode)

	var reloaded models.Bracelet
	require.NoError(t, db.First(&reloaded, bracelet.ID).Error)
	assert.Equal(t, models.BraceletStatusActive, reloaded.Status)
	assert.False(t, reloaded.EmergencyMode)
}

func TestResetStatusRequiresAlert(t *testing.T) {
	svc, db := newTestDeviceService(t)
	bracelet := createBracelet(t, db, "LG-RESET-02")

	_, err := svc.ResetStatus(bracelet.UniqueCode)
	assert.ErrorIs(t, err, ErrNotInAlert, "an active bracelet has nothing to reset")

	var reloaded models.Bracelet
	require.NoError(t, db.First(&reloaded, bracelet.ID).Error)
	assert.Equal(t, models.BraceletStatusActive, reloaded.Status)
}

func TestCheckAssociation(t *testing.T) {
	svc, db := newTestDeviceService(t)

	paired, bracelet, err := svc.CheckAssociation("LG-ASSOC-01")
	require.NoError(t, err)
	assert.False(t, paired, "a factory-fresh bracelet is unpaired")

	require.NoError(t, db.Model(bracelet).Update("is_paired", true).Error)

	paired, _, err = svc.CheckAssociation("LG-ASSOC-01")
	require.NoError(t, err)
	assert.True(t, paired)
}
