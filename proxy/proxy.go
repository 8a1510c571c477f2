// Package proxy provides thread-safe proxy descriptor management for the
// profile engine.
//
// Unlike a plain address rotator, every proxy here carries the geographic and
// network metadata (country, city, timezone, coordinates, ISP, ASN) that the
// fingerprint generator derives device attributes from.  A descriptor missing
// any of those fields is rejected at load time, because a profile bound to it
// could never produce a consistent fingerprint.
package proxy

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Descriptor is one network egress point plus the real-world location data
// associated with it.
//
// The geographic fields are authoritative for every fingerprint derived from
// this proxy: timezone and coordinates are copied into the fingerprint
// verbatim (coordinates with a small jitter), and fonts/hardware are computed
// from country, ISP, organization and ASN.
type Descriptor struct {
	// ID uniquely identifies the descriptor within the pool.  Assigned at
	// load time from the list position when the file does not provide one.
	ID string `json:"id"`

	// Host and Port locate the proxy endpoint.
	Host string `json:"host" validate:"required"`
	Port int    `json:"port" validate:"required,min=1,max=65535"`

	// Protocol is the proxy scheme: "http", "https" or "socks5".
	Protocol string `json:"protocol" validate:"required,oneof=http https socks5"`

	// Username and Password are optional authentication credentials.
	Username string `json:"username"`
	Password string `json:"password"`

	// Country is the ISO 3166-1 alpha-2 code of the egress location.
	Country string `json:"country" validate:"required,len=2"`

	// City is the egress city name.
	City string `json:"city" validate:"required"`

	// Timezone is the IANA timezone identifier of the egress location
	// (e.g. "America/New_York").
	Timezone string `json:"timezone" validate:"required"`

	// Latitude and Longitude are the egress coordinates in decimal degrees.
	Latitude  float64 `json:"lat" validate:"min=-90,max=90"`
	Longitude float64 `json:"lon" validate:"min=-180,max=180"`

	// ISP is the consumer-facing provider name (e.g. "Comcast Business").
	ISP string `json:"isp" validate:"required"`

	// Organization is the registered network organization, which may differ
	// from the ISP for resold or datacenter ranges.
	Organization string `json:"organization"`

	// ASN is the autonomous system number of the egress range.
	ASN int `json:"asn" validate:"required,min=1"`
}

// URL returns the proxy endpoint as a URL string suitable for an HTTP
// transport, including credentials when present.
func (d *Descriptor) URL() string {
	u := url.URL{
		Scheme: d.Protocol,
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
	}
	if d.Username != "" {
		u.User = url.UserPassword(d.Username, d.Password)
	}
	return u.String()
}

// ServerAddr returns the scheme://host:port form without credentials, which
// is what Chromium's --proxy-server flag expects.  Credentials, when present,
// must be supplied separately through the automation layer.
func (d *Descriptor) ServerAddr() string {
	return fmt.Sprintf("%s://%s", d.Protocol, net.JoinHostPort(d.Host, strconv.Itoa(d.Port)))
}

// Authenticated reports whether the descriptor carries credentials.
func (d *Descriptor) Authenticated() bool {
	return d.Username != ""
}

// Manager holds a pool of proxy descriptors and hands them out round-robin.
//
// Thread-safety: a sync.Mutex serialises all mutations of index, so Next may
// be called from any number of goroutines simultaneously without data races.
type Manager struct {
	descriptors []*Descriptor
	index       int
	mutex       sync.Mutex
}

// LoadFile reads a JSON array of Descriptor objects from filename and stores
// them in m, replacing any previously loaded pool.  Every descriptor is
// validated; a single invalid entry fails the whole load, because silently
// skipping an entry would leave the operator believing a proxy is in rotation
// when it is not.
//
// It is the caller's responsibility not to call LoadFile concurrently with
// Next.
func (m *Manager) LoadFile(filename string) error {
	data, err := os.ReadFile(filename) // #nosec G304 – filename is an operator-supplied config path
	if err != nil {
		return fmt.Errorf("proxy: open %q: %w", filename, err)
	}

	var loaded []*Descriptor
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("proxy: decode %q: %w", filename, err)
	}

	v := validator.New()
	for i, d := range loaded {
		if d.ID == "" {
			d.ID = fmt.Sprintf("proxy-%d", i)
		}
		if err := v.Struct(d); err != nil {
			return fmt.Errorf("proxy: descriptor %q (index %d): %w", d.ID, i, err)
		}
	}

	m.mutex.Lock()
	m.descriptors = loaded
	m.index = 0
	m.mutex.Unlock()
	return nil
}

// Add validates d and appends it to the pool.  Useful for tests and for
// control planes that provision proxies one at a time.
func (m *Manager) Add(d *Descriptor) error {
	if err := validator.New().Struct(d); err != nil {
		return fmt.Errorf("proxy: descriptor %q: %w", d.ID, err)
	}
	m.mutex.Lock()
	m.descriptors = append(m.descriptors, d)
	m.mutex.Unlock()
	return nil
}

// Next returns the next descriptor in the rotation and advances the internal
// index, or nil if the pool is empty.
//
// The rotation is performed under the mutex so concurrent callers each
// receive a distinct descriptor and the index never wraps incorrectly.
func (m *Manager) Next() *Descriptor {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.descriptors) == 0 {
		return nil
	}
	d := m.descriptors[m.index]
	m.index = (m.index + 1) % len(m.descriptors)
	return d
}

// Count returns the number of loaded descriptors.
func (m *Manager) Count() int {
	m.mutex.Lock()
	n := len(m.descriptors)
	m.mutex.Unlock()
	return n
}
