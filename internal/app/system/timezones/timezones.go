// Package timezones resolves operator time zones by IANA ID.
//
// The zone database is embedded so lookups behave the same in minimal
// containers that ship without /usr/share/zoneinfo.
package timezones

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// DefaultID is used when no zone is configured.
const DefaultID = "UTC"

var (
	mu    sync.RWMutex
	cache = map[string]*time.Location{}
)

// Load returns the location for an IANA zone ID such as "America/Chicago".
// An empty ID resolves to UTC. Results are cached.
func Load(id string) (*time.Location, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultID
	}

	mu.RLock()
	loc, ok := cache[id]
	mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", id, err)
	}

	mu.Lock()
	cache[id] = loc
	mu.Unlock()
	return loc, nil
}

// Label returns a human-friendly label such as "America/Chicago (UTC-05:00)".
// Unknown IDs are returned unchanged.
func Label(id string, at time.Time) string {
	loc, err := Load(id)
	if err != nil {
		return id
	}
	return fmt.Sprintf("%s (UTC%s)", loc.String(), at.In(loc).Format("-07:00"))
}
