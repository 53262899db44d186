// Package cache provides the pluggable result cache shared by the
// enrichment handlers (C4/C6) and the periodic maintainer (C7): MANRS
// membership, PEN registry lookups, and upstream API responses all share
// this interface with a memory or Redis backend chosen at startup.
//
// Adapted from the provider cache in the teacher's internal/registrydata
// package, generalized from a single "provider result" cache into a
// general-purpose keyed TTL cache usable by any component.
package cache

import "time"

// Cache stores arbitrary JSON-serializable values under a string key with
// an optional TTL. A zero TTL means "never expires".
type Cache interface {
	Get(key string, dst any) (found bool, err error)
	Set(key string, value any, ttl time.Duration) error
}
