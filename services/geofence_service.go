package services

import (
	"fmt"
	"math"
	"sync"

	"leguardian-http-service/config"
	"leguardian-http-service/models"

	"gorm.io/gorm"
)

// earthRadiusMeters is the mean Earth radius used by the Haversine formula
const earthRadiusMeters = 6371000.0

// InterfaceGeofenceService defines the geofence evaluation service interface
type InterfaceGeofenceService interface {
	ProcessLocation(bracelet *models.Bracelet, lat, lon float64, accuracy *int) ([]models.BraceletEvent, error)
	CheckZone(braceletID uint, zone *models.SafetyZone, lat, lon float64) (inside bool, transition *models.EventType, err error)
}

// GeofenceService evaluates bracelet positions against safety zones and
// emits edge-triggered entry/exit events
type GeofenceService struct {
	DB           *gorm.DB
	Config       *config.Config
	Redis        InterfaceRedisService
	Notification InterfaceNotificationService

	// Per-bracelet locks so concurrent position reports for the same
	// bracelet cannot race on the membership cache. Reports for
	// different bracelets proceed in parallel.
	bracelets   map[uint]*sync.Mutex
	braceletsMu sync.Mutex
}

// NewGeofenceService creates a new geofence service
func NewGeofenceService(db *gorm.DB, cfg *config.Config, redis InterfaceRedisService, notification InterfaceNotificationService) InterfaceGeofenceService {
	return &GeofenceService{
		DB:           db,
		Config:       cfg,
		Redis:        redis,
		Notification: notification,
		bracelets:    make(map[uint]*sync.Mutex),
	}
}

// PointInPolygon reports whether the point (lat, lon) lies inside the
// polygon using the ray casting algorithm. Points exactly on an edge may
// fall on either side; zone polygons are large enough that this does not
// matter in practice.
func PointInPolygon(lat, lon float64, polygon []models.Coordinate) bool {
	n := len(polygon)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := polygon[i].Latitude, polygon[i].Longitude
		xj, yj := polygon[j].Latitude, polygon[j].Longitude

		if (yi > lon) != (yj > lon) &&
			lat < (xj-xi)*(lon-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// HaversineDistance returns the great-circle distance in meters between
// two coordinates
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// lockBracelet returns the mutex dedicated to a bracelet, creating it on
// first use
func (s *GeofenceService) lockBracelet(braceletID uint) *sync.Mutex {
	s.braceletsMu.Lock()
	defer s.braceletsMu.Unlock()

	mu, ok := s.bracelets[braceletID]
	if !ok {
		mu = &sync.Mutex{}
		s.bracelets[braceletID] = mu
	}
	return mu
}

// CheckZone evaluates a single zone for a position and returns the
// transition event type when the membership state flipped. An absent
// cache entry counts as outside, so the first fix inside a zone reports
// an entry.
func (s *GeofenceService) CheckZone(braceletID uint, zone *models.SafetyZone, lat, lon float64) (bool, *models.EventType, error) {
	inside := PointInPolygon(lat, lon, zone.Coordinates)

	wasInside, _, err := s.Redis.GetZoneMembership(braceletID, zone.ID)
	if err != nil {
		return inside, nil, err
	}

	if err := s.Redis.SetZoneMembership(braceletID, zone.ID, inside); err != nil {
		return inside, nil, err
	}

	if wasInside == inside {
		return inside, nil, nil
	}

	var transition models.EventType
	if inside {
		transition = models.EventZoneEntry
	} else {
		transition = models.EventZoneExit
	}
	return inside, &transition, nil
}

// ProcessLocation evaluates every zone of the bracelet against the new
// position, persists one event per detected transition and notifies the
// guardians entitled to see them. Transitions on a muted zone update the
// membership cache but produce no event. Returns the created events.
func (s *GeofenceService) ProcessLocation(bracelet *models.Bracelet, lat, lon float64, accuracy *int) ([]models.BraceletEvent, error) {
	mu := s.lockBracelet(bracelet.ID)
	mu.Lock()
	defer mu.Unlock()

	var zones []models.SafetyZone
	if err := s.DB.Where("bracelet_id = ?", bracelet.ID).Find(&zones).Error; err != nil {
		return nil, fmt.Errorf("failed to load safety zones: %w", err)
	}

	var events []models.BraceletEvent
	for i := range zones {
		zone := &zones[i]

		_, transition, err := s.CheckZone(bracelet.ID, zone, lat, lon)
		if err != nil {
			config.Error("Geofence check failed for bracelet %d zone %d: %v", bracelet.ID, zone.ID, err)
			continue
		}
		if transition == nil {
			continue
		}
		if !s.shouldNotify(zone, *transition) {
			continue
		}

		event := models.BraceletEvent{
			BraceletID:   bracelet.ID,
			EventType:    *transition,
			Latitude:     &lat,
			Longitude:    &lon,
			Accuracy:     accuracy,
			BatteryLevel: bracelet.BatteryLevel,
			Metadata: models.JSONMap{
				"zone_id":   zone.ID,
				"zone_name": zone.Name,
			},
		}
		if err := s.DB.Create(&event).Error; err != nil {
			return events, fmt.Errorf("failed to record zone transition: %w", err)
		}
		events = append(events, event)

		config.Info("Bracelet %d %s zone %q", bracelet.ID, transitionVerb(*transition), zone.Name)

		if s.Notification != nil {
			s.Notification.NotifyZoneTransition(bracelet, zone, *transition)
		}
	}

	return events, nil
}

func (s *GeofenceService) shouldNotify(zone *models.SafetyZone, transition models.EventType) bool {
	if transition == models.EventZoneEntry {
		return zone.NotifyOnEntry
	}
	return zone.NotifyOnExit
}

func transitionVerb(t models.EventType) string {
	if t == models.EventZoneEntry {
		return "entered"
	}
	return "left"
}
