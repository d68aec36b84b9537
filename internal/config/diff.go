package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CorpusChanged is set when the corpus source moved; the phrase table
	// must be reloaded.
	CorpusChanged bool

	// PolysemyChanged is set when the polysemy table path changed.
	PolysemyChanged bool

	// MatchingChanged is set when thresholds, limit or default tier changed.
	MatchingChanged bool

	// RestartRequired is set for changes that cannot be applied while
	// running: listen addresses, providers and telemetry.
	RestartRequired bool
}

// Empty reports whether d carries no changes.
func (d ConfigDiff) Empty() bool {
	return d == ConfigDiff{}
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.CorpusChanged = old.Corpus != new.Corpus
	d.PolysemyChanged = old.Polysemy != new.Polysemy
	d.MatchingChanged = old.Matching != new.Matching

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Server.LogFormat != new.Server.LogFormat ||
		!slices.Equal(old.Server.AllowedOrigins, new.Server.AllowedOrigins) ||
		old.Telemetry != new.Telemetry ||
		!reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = true
	}
	return d
}

// KeepRestartFields copies into next the fields of running that only change
// on restart: listen address, log format, allowed origins, providers and
// telemetry. A config treated this way describes what is actually in force,
// so diffing against it keeps reporting a pending restart.
func KeepRestartFields(next, running *Config) {
	next.Server.ListenAddr = running.Server.ListenAddr
	next.Server.LogFormat = running.Server.LogFormat
	next.Server.AllowedOrigins = running.Server.AllowedOrigins
	next.Providers = running.Providers
	next.Telemetry = running.Telemetry
}
