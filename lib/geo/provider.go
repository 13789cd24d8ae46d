package geo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrAddressNotFound is returned by a provider that answered but found no match
	ErrAddressNotFound = errors.New("address not found")
	// ErrProviderTimeout is returned by a provider when the request timed out or was rate limited.
	// Errors wrapping it are retried by the Resolver.
	ErrProviderTimeout = errors.New("geocoding provider timed out")
)

// IProvider is a geocoding service
type IProvider interface {
	// Geocode returns the coordinates of an address.
	// It returns ErrAddressNotFound if the provider has no match and a timeout-class error
	// (ErrProviderTimeout, context.DeadlineExceeded or a net.Error with Timeout() == true)
	// if the request may succeed when retried.
	Geocode(ctx context.Context, address string) (lon, lat float64, err error)
}

// --------------------------------------------------------------------------
// Static Provider
// --------------------------------------------------------------------------

// StaticProvider answers from a fixed table. It is used in tests and offline mode.
// Addresses missing from the table yield ErrAddressNotFound.
type StaticProvider struct {
	mu     sync.RWMutex
	points map[string]Point
	// Failures maps an address to an error returned instead of a lookup.
	// An entry is consumed by every call until its counter drops to zero.
	failures map[string]*failure
	calls    atomic.Int64
}

type failure struct {
	err   error
	times int
}

// NewStaticProvider creates a provider answering the given addresses
func NewStaticProvider(points map[string]Point) *StaticProvider {
	p := &StaticProvider{
		points:   make(map[string]Point, len(points)),
		failures: make(map[string]*failure),
	}
	for address, point := range points {
		p.points[address] = point
	}
	return p
}

// Add registers or replaces an address
func (p *StaticProvider) Add(address string, point Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.points[address] = point
}

// FailNext makes the next n lookups of address fail with err
func (p *StaticProvider) FailNext(address string, err error, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[address] = &failure{err: err, times: n}
}

// Calls returns the number of Geocode calls so far
func (p *StaticProvider) Calls() int64 {
	return p.calls.Load()
}

func (p *StaticProvider) Geocode(ctx context.Context, address string) (float64, float64, error) {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.failures[address]; ok && f.times > 0 {
		f.times--
		return 0, 0, f.err
	}
	point, ok := p.points[address]
	if !ok {
		return 0, 0, ErrAddressNotFound
	}
	return point.Lon(), point.Lat(), nil
}
