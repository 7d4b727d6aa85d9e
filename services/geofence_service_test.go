package services

import (
	"testing"

	"leguardian-http-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func squarePolygon() []models.Coordinate {
	return []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 10},
		{Latitude: 10, Longitude: 10},
		{Latitude: 10, Longitude: 0},
	}
}

func TestPointInPolygon(t *testing.T) {
	square := squarePolygon()

	assert.True(t, PointInPolygon(5, 5, square))
	assert.False(t, PointInPolygon(15, 15, square))
	assert.False(t, PointInPolygon(-1, 5, square))
	assert.False(t, PointInPolygon(5, 11, square))
}

func TestPointInPolygonWindingOrder(t *testing.T) {
	square := squarePolygon()
	reversed := make([]models.Coordinate, len(square))
	for i := range square {
		reversed[len(square)-1-i] = square[i]
	}

	assert.True(t, PointInPolygon(5, 5, reversed))
	assert.False(t, PointInPolygon(15, 15, reversed))
}

func TestPointInPolygonStartVertexRotation(t *testing.T) {
	square := squarePolygon()
	rotated := append(square[2:], square[:2]...)

	assert.True(t, PointInPolygon(5, 5, rotated))
	assert.False(t, PointInPolygon(15, 15, rotated))
}

func TestPointInPolygonConcave(t *testing.T) {
	// U shape open at the top; the notch (5, 5..9) is outside
	u := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 10},
		{Latitude: 10, Longitude: 10},
		{Latitude: 10, Longitude: 7},
		{Latitude: 3, Longitude: 7},
		{Latitude: 3, Longitude: 3},
		{Latitude: 10, Longitude: 3},
		{Latitude: 10, Longitude: 0},
	}

	assert.True(t, PointInPolygon(1, 5, u))
	assert.False(t, PointInPolygon(6, 5, u))
	assert.True(t, PointInPolygon(6, 8, u))
}

func TestPointInPolygonDegenerate(t *testing.T) {
	assert.False(t, PointInPolygon(5, 5, nil))
	assert.False(t, PointInPolygon(5, 5, []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 10, Longitude: 10},
	}))
}

func TestHaversineDistance(t *testing.T) {
	// One degree of longitude on the equator is about 111.2 km
	d := HaversineDistance(0, 0, 0, 1)
	assert.InDelta(t, 111195, d, 200)

	assert.Zero(t, HaversineDistance(48.8566, 2.3522, 48.8566, 2.3522))

	// Notre-Dame to the Eiffel Tower, roughly 4.1 km
	paris := HaversineDistance(48.8530, 2.3499, 48.8584, 2.2945)
	assert.InDelta(t, 4100, paris, 200)
}

func createZone(t *testing.T, db *gorm.DB, braceletID uint, name string, polygon []models.Coordinate) *models.SafetyZone {
	t.Helper()

	zone := &models.SafetyZone{
		BraceletID:    braceletID,
		Name:          name,
		Coordinates:   polygon,
		NotifyOnEntry: true,
		NotifyOnExit:  true,
	}
	require.NoError(t, db.Create(zone).Error)
	return zone
}

func newTestGeofenceService(t *testing.T) (*GeofenceService, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	redisService := setupTestRedis(t)
	svc := NewGeofenceService(db, testConfig(), redisService, nil).(*GeofenceService)
	return svc, db
}

func TestCheckZoneColdCacheCountsAsOutside(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-COLD-0001")
	zone := createZone(t, db, bracelet.ID, "Home", squarePolygon())

	// With no cached membership the first inside fix is an entry
	inside, transition, err := svc.CheckZone(bracelet.ID, zone, 5, 5)
	require.NoError(t, err)
	assert.True(t, inside)
	require.NotNil(t, transition)
	assert.Equal(t, models.EventZoneEntry, *transition)

	// Same position again yields no transition
	inside, transition, err = svc.CheckZone(bracelet.ID, zone, 5, 5)
	require.NoError(t, err)
	assert.True(t, inside)
	assert.Nil(t, transition)
}

func TestCheckZoneColdCacheOutsideFixIsSilent(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-COLD-0002")
	zone := createZone(t, db, bracelet.ID, "Home", squarePolygon())

	inside, transition, err := svc.CheckZone(bracelet.ID, zone, 15, 15)
	require.NoError(t, err)
	assert.False(t, inside)
	assert.Nil(t, transition, "outside matches the cold-cache default")
}

func TestCheckZoneDetectsFlip(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-FLIP-0001")
	zone := createZone(t, db, bracelet.ID, "School", squarePolygon())

	// First inside fix caches the membership
	_, _, err := svc.CheckZone(bracelet.ID, zone, 5, 5)
	require.NoError(t, err)

	_, transition, err := svc.CheckZone(bracelet.ID, zone, 15, 15)
	require.NoError(t, err)
	require.NotNil(t, transition)
	assert.Equal(t, models.EventZoneExit, *transition)

	_, transition, err = svc.CheckZone(bracelet.ID, zone, 5, 5)
	require.NoError(t, err)
	require.NotNil(t, transition)
	assert.Equal(t, models.EventZoneEntry, *transition)
}

func TestProcessLocationEmitsEdgeTriggeredEvents(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-WALK-0001")
	zone := createZone(t, db, bracelet.ID, "Park", squarePolygon())

	// First fix inside the zone is an entry
	events, err := svc.ProcessLocation(bracelet, 5, 5, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventZoneEntry, events[0].EventType)

	// Walk out
	events, err = svc.ProcessLocation(bracelet, 15, 15, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventZoneExit, events[0].EventType)
	assert.Equal(t, zone.Name, events[0].Metadata["zone_name"])

	// Stay out: no duplicate
	events, err = svc.ProcessLocation(bracelet, 16, 16, nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	// Walk back in
	events, err = svc.ProcessLocation(bracelet, 5, 5, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventZoneEntry, events[0].EventType)

	var persisted int64
	require.NoError(t, db.Model(&models.BraceletEvent{}).Where("bracelet_id = ?", bracelet.ID).Count(&persisted).Error)
	assert.EqualValues(t, 3, persisted)
}

func TestProcessLocationMultipleZones(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-MULTI-001")

	createZone(t, db, bracelet.ID, "Inner", []models.Coordinate{
		{Latitude: 4, Longitude: 4},
		{Latitude: 4, Longitude: 6},
		{Latitude: 6, Longitude: 6},
		{Latitude: 6, Longitude: 4},
	})
	createZone(t, db, bracelet.ID, "Outer", squarePolygon())

	// First fix enters both zones
	events, err := svc.ProcessLocation(bracelet, 5, 5, nil)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// Leave the inner zone but stay within the outer one
	events, err = svc.ProcessLocation(bracelet, 8, 8, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventZoneExit, events[0].EventType)
	assert.Equal(t, "Inner", events[0].Metadata["zone_name"])
}

func TestProcessLocationMutedZone(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-MUTE-0001")

	zone := &models.SafetyZone{
		BraceletID:    bracelet.ID,
		Name:          "Quiet",
		Coordinates:   squarePolygon(),
		NotifyOnEntry: false,
		NotifyOnExit:  false,
	}
	require.NoError(t, db.Create(zone).Error)

	// Enter and leave: the membership cache tracks the moves but no
	// event is recorded for a muted zone
	events, err := svc.ProcessLocation(bracelet, 5, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = svc.ProcessLocation(bracelet, 15, 15, nil)
	require.NoError(t, err)
	assert.Empty(t, events)

	var persisted int64
	require.NoError(t, db.Model(&models.BraceletEvent{}).Where("bracelet_id = ?", bracelet.ID).Count(&persisted).Error)
	assert.Zero(t, persisted)
}

func TestProcessLocationEntryOnlyZone(t *testing.T) {
	svc, db := newTestGeofenceService(t)
	bracelet := createBracelet(t, db, "LG-MUTE-0002")

	zone := &models.SafetyZone{
		BraceletID:    bracelet.ID,
		Name:          "EntryOnly",
		Coordinates:   squarePolygon(),
		NotifyOnEntry: true,
		NotifyOnExit:  false,
	}
	require.NoError(t, db.Create(zone).Error)

	events, err := svc.ProcessLocation(bracelet, 5, 5, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventZoneEntry, events[0].EventType)

	events, err = svc.ProcessLocation(bracelet, 15, 15, nil)
	require.NoError(t, err)
	assert.Empty(t, events, "exits on an entry-only zone stay silent")

	// Re-entering still fires: the cache followed the silent exit
	events, err = svc.ProcessLocation(bracelet, 5, 5, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventZoneEntry, events[0].EventType)
}
