package util

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/dODM/lib/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
	"time"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// App is the instance opened by OpenApp for the running command
var App *config.App

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupConfigFlags adds the backend, schema and geocoder flags to a command group
func SetupConfigFlags(cmd *cobra.Command) {
	def := config.Default()

	key := "mongo-uri"
	cmd.PersistentFlags().String(key, def.MongoURI, WrapString("MongoDB connection string. Empty uses an in-process document store that lives as long as the command"))

	key = "mongo-database"
	cmd.PersistentFlags().String(key, def.MongoDatabase, WrapString("MongoDB database holding one collection per kind"))

	key = "redis-url"
	cmd.PersistentFlags().String(key, def.RedisURL, WrapString("Redis URL (redis://[:password@]host:port/db). Empty uses an in-process cache that lives as long as the command"))

	key = "cache-ttl"
	cmd.PersistentFlags().Duration(key, def.CacheTTL, WrapString("Lifetime of cached model snapshots, extended on every cache hit"))

	key = "schema"
	cmd.PersistentFlags().String(key, def.SchemaFile, WrapString("YAML file declaring the model kinds"))

	key = "snapshot-format"
	cmd.PersistentFlags().String(key, def.SnapshotFormat, WrapString("Encoding of cached snapshots (bson, json)"))

	key = "geocoder-endpoint"
	cmd.PersistentFlags().String(key, def.GeocoderEndpoint, WrapString("Base URL of the Nominatim compatible geocoding service"))

	key = "geocoder-user-agent"
	cmd.PersistentFlags().String(key, def.GeocoderUserAgent, WrapString("User agent sent to the geocoding service"))

	key = "geocoder-delay"
	cmd.PersistentFlags().Duration(key, def.GeocoderDelay, WrapString("Courtesy delay before every geocoding request"))

	key = "geocoder-timeout"
	cmd.PersistentFlags().Duration(key, def.GeocoderTimeout, WrapString("Timeout of a single geocoding request"))

	key = "geocoder-attempts"
	cmd.PersistentFlags().Int(key, def.GeocoderAttempts, WrapString("Attempts per address when the geocoding service times out"))

	key = "timeout"
	cmd.PersistentFlags().Int64(key, def.TimeoutSecond, WrapString("Timeout in seconds for connecting to the backends"))

	key = "log-level"
	cmd.PersistentFlags().String(key, def.LogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dodm")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetConfig reads the configuration from viper
func GetConfig() *config.Config {
	return &config.Config{
		MongoURI:          viper.GetString("mongo-uri"),
		MongoDatabase:     viper.GetString("mongo-database"),
		RedisURL:          viper.GetString("redis-url"),
		CacheTTL:          viper.GetDuration("cache-ttl"),
		SchemaFile:        viper.GetString("schema"),
		SnapshotFormat:    viper.GetString("snapshot-format"),
		GeocoderEndpoint:  viper.GetString("geocoder-endpoint"),
		GeocoderUserAgent: viper.GetString("geocoder-user-agent"),
		GeocoderDelay:     viper.GetDuration("geocoder-delay"),
		GeocoderTimeout:   viper.GetDuration("geocoder-timeout"),
		GeocoderAttempts:  viper.GetInt("geocoder-attempts"),
		TimeoutSecond:     viper.GetInt64("timeout"),
		MetricsEndpoint:   viper.GetString("metrics-endpoint"),
		LogLevel:          viper.GetString("log-level"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// OpenApp binds the flags, initializes the loggers and bootstraps App.
// It is meant to be used as PersistentPreRunE of a command group.
func OpenApp(cmd *cobra.Command, _ []string) error {
	if err := BindCommandFlags(cmd); err != nil {
		return err
	}

	conf := GetConfig()
	if err := config.InitLoggers(conf.LogLevel); err != nil {
		return err
	}

	app, err := config.Bootstrap(cmd.Context(), conf)
	if err != nil {
		return err
	}
	App = app
	return nil
}

// CloseApp releases the backends of App. It is meant to be used as PersistentPostRunE.
func CloseApp(cmd *cobra.Command, _ []string) error {
	if App == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
	defer cancel()
	err := App.Close(ctx)
	App = nil
	return err
}

// ParseAttributes turns name=value arguments into attributes. Values that parse as JSON
// (numbers, booleans, null, arrays, objects, quoted strings) keep their JSON type; everything
// else is taken as a plain string.
func ParseAttributes(args []string) (map[string]any, error) {
	attrs := make(map[string]any, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid attribute %q (expected name=value)", arg)
		}
		attrs[name] = ParseValue(raw)
	}
	return attrs, nil
}

// ParseValue interprets a single command line value, see ParseAttributes
func ParseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return raw
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

// PrintJSON writes v as indented JSON to the output of cmd
func PrintJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
