package cache

import (
	"fmt"
	"time"
)

// Call sites with a configured TTL.
const (
	SiteLocation = "location"
	SiteWeather  = "weather"
	SiteMandi    = "mandi"
	SiteDrones   = "drones"
	SiteSchemes  = "schemes"
)

// Policy maps call sites to the TTL of the entries they write.
//
// There is no global default: a site without an entry has no TTL and
// TTL reports ErrMissingTTL.
type Policy struct {
	// TTLs holds the TTL per call site.
	TTLs map[string]time.Duration

	// MaxTTL is the maximum allowed TTL. Site TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the TTLs the advisory services ship with.
// Location: 24h, weather/mandi/drones: 4h, schemes: 24h. MaxTTL: 48h.
func DefaultPolicy() Policy {
	return Policy{
		TTLs: map[string]time.Duration{
			SiteLocation: 24 * time.Hour,
			SiteWeather:  4 * time.Hour,
			SiteMandi:    4 * time.Hour,
			SiteDrones:   4 * time.Hour,
			SiteSchemes:  24 * time.Hour,
		},
		MaxTTL: 48 * time.Hour,
	}
}

// TTL returns the effective TTL for site, clamped to MaxTTL.
func (p Policy) TTL(site string) (time.Duration, error) {
	ttl, ok := p.TTLs[site]
	if !ok || ttl <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrMissingTTL, site)
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl, nil
}

// With returns a copy of p with site set to ttl.
func (p Policy) With(site string, ttl time.Duration) Policy {
	ttls := make(map[string]time.Duration, len(p.TTLs)+1)
	for k, v := range p.TTLs {
		ttls[k] = v
	}
	ttls[site] = ttl
	p.TTLs = ttls
	return p
}
