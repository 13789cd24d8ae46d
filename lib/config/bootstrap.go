package config

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/cache"
	"github.com/ValentinKolb/dODM/lib/cache/lcache"
	"github.com/ValentinKolb/dODM/lib/cache/rcache"
	"github.com/ValentinKolb/dODM/lib/docstore"
	"github.com/ValentinKolb/dODM/lib/docstore/memstore"
	"github.com/ValentinKolb/dODM/lib/docstore/mstore"
	"github.com/ValentinKolb/dODM/lib/geo"
	"github.com/ValentinKolb/dODM/lib/helpdesk"
	"github.com/ValentinKolb/dODM/lib/odm"
	"github.com/ValentinKolb/dODM/lib/odm/snapshot"
	"github.com/ValentinKolb/dODM/lib/schema"
	"github.com/ValentinKolb/dODM/lib/sessions"
	"github.com/lni/dragonboat/v4/logger"
	"sort"
	"time"
)

var log = logger.GetLogger("config")

// App is a fully wired instance: every kind of the schema file registered against the
// document store and the cache, plus the session directory and the helpdesk queue sharing
// the cache.
type App struct {
	Registry  *schema.Registry
	Kinds     map[string]*odm.Kind
	Database  docstore.IDatabase
	Cache     cache.ICacheStore
	Resolver  *geo.Resolver
	Directory sessions.IDirectory
	Queue     helpdesk.IQueue
}

// Bootstrap loads the schema file, connects the backends and registers every kind.
// The registry is frozen before Bootstrap returns.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	entries, err := schema.LoadFile(cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema file: %w", err)
	}

	serializer, err := snapshot.ByName(cfg.SnapshotFormat)
	if err != nil {
		return nil, err
	}

	provider, err := geo.NewNominatimProvider(geo.NominatimOptions{
		Endpoint:  cfg.GeocoderEndpoint,
		UserAgent: cfg.GeocoderUserAgent,
		Timeout:   cfg.GeocoderTimeout,
	})
	if err != nil {
		return nil, err
	}

	return BootstrapWith(ctx, cfg, entries, serializer, provider)
}

// BootstrapWith wires an App from already loaded schema entries and a geocoding provider
func BootstrapWith(ctx context.Context, cfg *Config, entries []*schema.Entry, serializer snapshot.ISnapshotSerializer, provider geo.IProvider) (*App, error) {
	timeout := time.Duration(cfg.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	app := &App{
		Registry: schema.NewRegistry(),
		Kinds:    make(map[string]*odm.Kind, len(entries)),
		Resolver: geo.NewResolver(provider, &geo.Options{
			Delay:       cfg.GeocoderDelay,
			MaxAttempts: cfg.GeocoderAttempts,
		}),
	}

	// durable store
	if cfg.LocalStore() {
		log.Warningf("no mongo uri configured, using the in-process document store")
		app.Database = memstore.NewMemoryDatabase()
	} else {
		db, err := mstore.NewMongoDatabase(ctx, mstore.Options{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  timeout,
		})
		if err != nil {
			return nil, err
		}
		app.Database = db
	}

	// cache
	if cfg.LocalCache() {
		log.Warningf("no redis url configured, using the in-process cache")
		app.Cache = lcache.NewLocalStore(nil)
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, timeout)
		store, err := rcache.NewRedisStore(connectCtx, rcache.Options{URL: cfg.RedisURL})
		cancel()
		if err != nil {
			_ = app.Database.Close(ctx)
			return nil, err
		}
		app.Cache = store
	}

	// kinds
	for _, entry := range entries {
		if err := app.Registry.Register(entry); err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		kind, err := odm.Register(ctx, odm.Binding{
			Schema:     entry,
			Collection: app.Database.Collection(entry.Kind()),
			Cache:      app.Cache,
			Resolver:   app.Resolver,
			Serializer: serializer,
			TTL:        cfg.CacheTTL,
		})
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		app.Kinds[entry.Kind()] = kind
		log.Debugf("registered kind %s", entry.Kind())
	}
	app.Registry.Freeze()

	app.Directory = sessions.NewDirectory(app.Cache, nil)
	app.Queue = helpdesk.NewQueue(app.Cache, nil)

	log.Infof("bootstrapped %d kinds", len(app.Kinds))
	return app, nil
}

// Kind returns the handle of a registered kind
func (a *App) Kind(name string) (*odm.Kind, error) {
	kind, ok := a.Kinds[name]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q (known: %v)", name, a.KindNames())
	}
	return kind, nil
}

// KindNames returns the registered kinds in sorted order
func (a *App) KindNames() []string {
	names := make([]string, 0, len(a.Kinds))
	for name := range a.Kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the backends
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.Database != nil {
		errs = append(errs, a.Database.Close(ctx))
	}
	return errors.Join(errs...)
}
