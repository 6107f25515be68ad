package storage

import (
	"strings"
	"sync"

	"github.com/eugenenazirov/shipping-cost/internal/geo"
)

// DefaultMaxEntries bounds the cache when no explicit size is configured.
const DefaultMaxEntries = 10000

// Storage memoizes geocoding results for the lifetime of the process.
type Storage interface {
	GetCoordinates(address string) (geo.Coordinates, bool)
	PutCoordinates(address string, coords geo.Coordinates)
	Len() int
}

// MemoryStorage keeps coordinates in-memory and guards access with a RWMutex.
// Once maxEntries is reached new addresses are not stored; existing entries are never evicted.
type MemoryStorage struct {
	mu         sync.RWMutex
	coords     map[string]geo.Coordinates
	maxEntries int
}

// NewMemoryStorage creates an empty cache. A non-positive maxEntries selects DefaultMaxEntries.
func NewMemoryStorage(maxEntries int) *MemoryStorage {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStorage{
		coords:     make(map[string]geo.Coordinates),
		maxEntries: maxEntries,
	}
}

// GetCoordinates returns cached coordinates for address.
func (s *MemoryStorage) GetCoordinates(address string) (geo.Coordinates, bool) {
	key := NormalizeAddress(address)
	if key == "" {
		return geo.Coordinates{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coords[key]
	return c, ok
}

// PutCoordinates stores coordinates for address. Blank addresses are ignored.
func (s *MemoryStorage) PutCoordinates(address string, coords geo.Coordinates) {
	key := NormalizeAddress(address)
	if key == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.coords[key]; !exists && len(s.coords) >= s.maxEntries {
		return
	}
	s.coords[key] = coords
}

// Len reports the number of cached addresses.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.coords)
}

// NormalizeAddress collapses whitespace and lower-cases address so equivalent spellings share a key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}
