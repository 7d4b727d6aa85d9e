package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leguardian-http-service/config"

	"github.com/go-redis/redis/v8"
)

// Zone membership cache entries expire after an hour so a stale flag
// self-heals even if an invalidation is missed.
const zoneMembershipTTL = time.Hour

// InterfaceRedisService defines the Redis cache service interface
type InterfaceRedisService interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string, dest interface{}) error
	Delete(key string) error
	SetZoneMembership(braceletID, zoneID uint, inside bool) error
	GetZoneMembership(braceletID, zoneID uint) (inside bool, known bool, err error)
	ClearZoneMembership(zoneID uint) error
	ClearBraceletMembership(braceletID uint) error
	Ping() error
	Close() error
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	Ctx    context.Context
}

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RedisService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// NewRedisServiceWithClient wraps an existing client, used by tests
func NewRedisServiceWithClient(client *redis.Client) *RedisService {
	return &RedisService{
		Client: client,
		Ctx:    context.Background(),
	}
}

// Set sets a key-value pair in Redis with expiration
func (s *RedisService) Set(key string, value interface{}, expiration time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.Client.Set(s.Ctx, key, jsonValue, expiration).Err()
}

// Get gets a value from Redis by key
func (s *RedisService) Get(key string, dest interface{}) error {
	val, err := s.Client.Get(s.Ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete deletes a key from Redis
func (s *RedisService) Delete(key string) error {
	return s.Client.Del(s.Ctx, key).Err()
}

func zoneMembershipKey(braceletID, zoneID uint) string {
	return fmt.Sprintf("geofence:%d:zone:%d", braceletID, zoneID)
}

// SetZoneMembership records whether a bracelet is currently inside a zone
func (s *RedisService) SetZoneMembership(braceletID, zoneID uint, inside bool) error {
	val := "0"
	if inside {
		val = "1"
	}
	return s.Client.Set(s.Ctx, zoneMembershipKey(braceletID, zoneID), val, zoneMembershipTTL).Err()
}

// GetZoneMembership returns the cached membership state for a bracelet/zone
// pair. known is false when no state has been recorded yet; the first
// position fix after a cold cache must not produce a transition event.
func (s *RedisService) GetZoneMembership(braceletID, zoneID uint) (bool, bool, error) {
	val, err := s.Client.Get(s.Ctx, zoneMembershipKey(braceletID, zoneID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return val == "1", true, nil
}

// ClearZoneMembership drops all cached membership state for a zone.
// Called when a zone's polygon changes or the zone is deleted.
func (s *RedisService) ClearZoneMembership(zoneID uint) error {
	return s.clearByPattern(fmt.Sprintf("geofence:*:zone:%d", zoneID))
}

// ClearBraceletMembership drops all cached membership state for a bracelet
func (s *RedisService) ClearBraceletMembership(braceletID uint) error {
	return s.clearByPattern(fmt.Sprintf("geofence:%d:zone:*", braceletID))
}

func (s *RedisService) clearByPattern(pattern string) error {
	iter := s.Client.Scan(s.Ctx, 0, pattern, 100).Iterator()
	for iter.Next(s.Ctx) {
		if err := s.Client.Del(s.Ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping checks the Redis connection
func (s *RedisService) Ping() error {
	ctx, cancel := context.WithTimeout(s.Ctx, 5*time.Second)
	defer cancel()
	return s.Client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisService) Close() error {
	return s.Client.Close()
}
