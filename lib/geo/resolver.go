package geo

import (
	"context"
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
	"net"
	"time"
)

var log = logger.GetLogger("geo")

// FailureSentinel is stored instead of a point when an address could not be resolved
const FailureSentinel = "Error: address could not be geolocated"

// ErrUnresolvableAddress is returned when an address is empty, unknown to the provider or
// could not be resolved within the allowed number of attempts
var ErrUnresolvableAddress = errors.New("unresolvable address")

var (
	memoHits      = metrics.NewCounter(`dodm_geo_memo_total{result="hit"}`)
	memoMisses    = metrics.NewCounter(`dodm_geo_memo_total{result="miss"}`)
	providerCalls = metrics.NewCounter(`dodm_geo_provider_calls_total`)
	providerFails = metrics.NewCounter(`dodm_geo_provider_failures_total`)
)

// IResolver turns an address into a point
type IResolver interface {
	Resolve(ctx context.Context, address string) (Point, error)
}

// Options configures a Resolver
type Options struct {
	Delay       time.Duration // Wait before every provider attempt, including the first
	MaxAttempts int           // Attempts per address on timeout-class errors
}

// DefaultOptions returns the default resolver options: 2s courtesy delay and 3 attempts
func DefaultOptions() *Options {
	return &Options{
		Delay:       2 * time.Second,
		MaxAttempts: 3,
	}
}

// memoEntry is either a point or a remembered "not found"
type memoEntry struct {
	point  Point
	failed bool
}

// Resolver memoizes provider answers per exact address string. Successful lookups and addresses
// the provider does not know are remembered for the lifetime of the Resolver; exhausted timeouts
// are not, so a later call tries again.
//
// A Resolver is safe for concurrent use. Concurrent lookups of the same address share one
// provider call.
type Resolver struct {
	provider IProvider
	opts     Options
	memo     *xsync.MapOf[string, memoEntry]
	group    singleflight.Group
}

// NewResolver creates a resolver in front of provider. A nil opts uses DefaultOptions.
func NewResolver(provider IProvider, opts *Options) *Resolver {
	if opts == nil {
		opts = DefaultOptions()
	}
	o := *opts
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	return &Resolver{
		provider: provider,
		opts:     o,
		memo:     xsync.NewMapOf[string, memoEntry](),
	}
}

// Resolve returns the point of an address. Cancelling ctx stops waiting for the answer; a lookup
// shared with other callers keeps running for them.
func (r *Resolver) Resolve(ctx context.Context, address string) (Point, error) {
	if address == "" {
		return Point{}, fmt.Errorf("%w: empty address", ErrUnresolvableAddress)
	}

	if e, ok := r.memo.Load(address); ok {
		memoHits.Inc()
		return e.result(address)
	}
	memoMisses.Inc()

	// the shared lookup is detached from the caller that started it: a cancelled caller stops
	// waiting, the others still get the answer
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(address, func() (any, error) {
		// another caller may have finished between the memo check and joining the group
		if e, ok := r.memo.Load(address); ok {
			return e, nil
		}
		return r.lookup(lookupCtx, address)
	})

	select {
	case <-ctx.Done():
		return Point{}, fmt.Errorf("%w: %w", ErrUnresolvableAddress, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return Point{}, res.Err
		}
		return res.Val.(memoEntry).result(address)
	}
}

// Len returns the number of memoized addresses
func (r *Resolver) Len() int {
	return r.memo.Size()
}

func (e memoEntry) result(address string) (Point, error) {
	if e.failed {
		return Point{}, fmt.Errorf("%w: %q", ErrUnresolvableAddress, address)
	}
	return e.point, nil
}

// lookup calls the provider with the courtesy delay and retries. Only definite answers are memoized.
func (r *Resolver) lookup(ctx context.Context, address string) (memoEntry, error) {
	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := sleep(ctx, r.opts.Delay); err != nil {
			return memoEntry{}, fmt.Errorf("%w: %w", ErrUnresolvableAddress, err)
		}

		providerCalls.Inc()
		lon, lat, err := r.provider.Geocode(ctx, address)
		switch {
		case err == nil:
			e := memoEntry{point: NewPoint(lon, lat)}
			r.memo.Store(address, e)
			return e, nil

		case errors.Is(err, ErrAddressNotFound):
			log.Debugf("address %q not found", address)
			e := memoEntry{failed: true}
			r.memo.Store(address, e)
			return e, nil

		case isTimeout(err):
			providerFails.Inc()
			log.Warningf("geocoding %q timed out (attempt %d/%d): %v", address, attempt, r.opts.MaxAttempts, err)
			lastErr = err

		default:
			providerFails.Inc()
			log.Errorf("geocoding %q failed: %v", address, err)
			return memoEntry{}, fmt.Errorf("%w: %w", ErrUnresolvableAddress, err)
		}
	}
	return memoEntry{}, fmt.Errorf("%w: giving up after %d attempts: %w", ErrUnresolvableAddress, r.opts.MaxAttempts, lastErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, ErrProviderTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
