package cache

import (
	"time"

	"github.com/gametriol/InductionMainPage2k25/pkg/logger"
	"github.com/gametriol/InductionMainPage2k25/pkg/metrics"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	sessionKeyPrefix   = "session:"
	sessionCleanupTick = time.Minute
)

// SessionCache holds one value per form session. Entries expire after ttl
// without access; every successful Get extends the lease.
type SessionCache[T any] struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewSessionCache creates a session registry with sliding expiration
func NewSessionCache[T any](ttl time.Duration) *SessionCache[T] {
	c := &SessionCache[T]{
		cache: gocache.New(ttl, sessionCleanupTick),
		ttl:   ttl,
	}

	c.cache.OnEvicted(func(key string, _ interface{}) {
		logger.Debug("Form session evicted", zap.String("key", key))
		metrics.ActiveSessions.Set(float64(c.cache.ItemCount()))
	})

	return c
}

// Create allocates a new session id and stores the value built for it
func (c *SessionCache[T]) Create(build func(id string) T) (string, T) {
	id := uuid.NewString()
	value := build(id)

	c.cache.Set(sessionKeyPrefix+id, value, c.ttl)
	metrics.ActiveSessions.Set(float64(c.cache.ItemCount()))

	return id, value
}

// Get returns the session's value and refreshes its expiry
func (c *SessionCache[T]) Get(id string) (T, bool) {
	var zero T
	if _, err := uuid.Parse(id); err != nil {
		return zero, false
	}

	key := sessionKeyPrefix + id
	data, found := c.cache.Get(key)
	if !found {
		return zero, false
	}

	value, ok := data.(T)
	if !ok {
		logger.Error("Invalid session cache data type", zap.String("session_id", id))
		c.cache.Delete(key)
		return zero, false
	}

	c.cache.Set(key, value, c.ttl)
	return value, true
}

// Delete drops a session
func (c *SessionCache[T]) Delete(id string) {
	c.cache.Delete(sessionKeyPrefix + id)
}

// Count returns the number of sessions currently held, including expired ones not yet cleaned up
func (c *SessionCache[T]) Count() int {
	return c.cache.ItemCount()
}
