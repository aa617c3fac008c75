package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yegors/flightsurety/internal/surety"
)

// CachedSource remembers the upstream answers of one worker. Repeated requests
// for the same flight and timestamp are answered from memory for ttl and
// concurrent lookups are collapsed into one. Failures are not cached.
type CachedSource struct {
	source  StatusSource
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*statusCache
}

// statusCache is one cached answer with its expiration
type statusCache struct {
	status    surety.StatusCode
	expiresAt time.Time
}

func (c *statusCache) isExpired(now time.Time) bool {
	return now.After(c.expiresAt)
}

// NewCachedSource wraps source. A non-positive ttl disables caching but still
// collapses concurrent lookups.
func NewCachedSource(source StatusSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*statusCache),
	}
}

func (s *CachedSource) Status(ctx context.Context, req surety.FlightStatusRequested) (surety.StatusCode, error) {
	key := fmt.Sprintf("%s/%s/%d", req.Airline.Hex(), req.FlightCode, req.Timestamp)

	if status, ok := s.get(key); ok {
		return status, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		status, err := s.source.Status(ctx, req)
		if err != nil {
			return nil, err
		}
		s.set(key, status)
		return status, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(surety.StatusCode), nil
}

func (s *CachedSource) get(key string) (surety.StatusCode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.isExpired(s.now()) {
		return 0, false
	}
	return entry.status, true
}

func (s *CachedSource) set(key string, status surety.StatusCode) {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, entry := range s.entries {
		if entry.isExpired(now) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = &statusCache{status: status, expiresAt: now.Add(s.ttl)}
}
