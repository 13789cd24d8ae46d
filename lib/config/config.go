package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds everything needed to bootstrap the ODM, the session directory and the helpdesk
// queue. Empty connection strings select the in-process backends.
type Config struct {
	// Durable store
	MongoURI      string
	MongoDatabase string

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Models
	SchemaFile     string
	SnapshotFormat string // bson or json

	// Geocoding
	GeocoderEndpoint  string
	GeocoderUserAgent string
	GeocoderDelay     time.Duration
	GeocoderTimeout   time.Duration
	GeocoderAttempts  int

	// Timeout for connecting to the backends
	TimeoutSecond int64

	// Prometheus style /metrics endpoint (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// Default returns a configuration using the in-process backends and the public Nominatim API
func Default() *Config {
	return &Config{
		MongoDatabase:     "dodm",
		CacheTTL:          24 * time.Hour,
		SchemaFile:        "models.yaml",
		SnapshotFormat:    "bson",
		GeocoderEndpoint:  "https://nominatim.openstreetmap.org",
		GeocoderUserAgent: "dodm",
		GeocoderDelay:     2 * time.Second,
		GeocoderTimeout:   10 * time.Second,
		GeocoderAttempts:  3,
		TimeoutSecond:     10,
		LogLevel:          "info",
	}
}

// LocalStore reports whether the durable store runs in-process
func (c *Config) LocalStore() bool { return c.MongoURI == "" }

// LocalCache reports whether the cache runs in-process
func (c *Config) LocalCache() bool { return c.RedisURL == "" }

// String returns a formatted string representation of the configuration
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Document Store")
	if c.LocalStore() {
		addField("Backend", "in-process")
	} else {
		addField("Backend", "mongodb")
		addField("URI", redact(c.MongoURI))
		addField("Database", c.MongoDatabase)
	}

	addSection("Cache")
	if c.LocalCache() {
		addField("Backend", "in-process")
	} else {
		addField("Backend", "redis")
		addField("URL", redact(c.RedisURL))
	}
	addField("Snapshot TTL", c.CacheTTL.String())
	addField("Snapshot Format", c.SnapshotFormat)

	addSection("Models")
	addField("Schema File", c.SchemaFile)

	addSection("Geocoder")
	addField("Endpoint", c.GeocoderEndpoint)
	addField("User Agent", c.GeocoderUserAgent)
	addField("Delay", c.GeocoderDelay.String())
	addField("Timeout", c.GeocoderTimeout.String())
	addField("Attempts", fmt.Sprintf("%d", c.GeocoderAttempts))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}
	return sb.String()
}

// redact hides the password of a connection string
func redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return uri
	}
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return uri
	}
	return fmt.Sprintf("%s://%s:***@%s", scheme, user, host)
}
