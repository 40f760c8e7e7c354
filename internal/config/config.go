// Package config implements Blue Crab's file-based, in-process options
// surface: a settings file decoded directly into a struct via
// BurntSushi/toml. There is no environment variable or CLI flag
// handling in the core at all. Loading a file is always an explicit,
// opt-in call; nothing here is read implicitly.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/bluecrabdb/bluecrab/internal/bcerr"
)

// Logger receives structured lifecycle notifications from a Database as
// an injectable callback, rather than printing from inside the engine.
// event names a lifecycle point ("init", "commit", "checkout", "branch",
// "tag_commit", "merge", "save", "load"); fields carries event-specific
// detail. A nil Logger is a no-op.
type Logger func(event string, fields map[string]any)

// Options configures a Database. The zero value is the default
// configuration (the same as DefaultOptions); LoadOptionsFile decodes one
// from disk.
type Options struct {
	// MaxKeyBytes, MaxValueBytes, and MaxMetadataBytes bound the size of
	// the respective fields in UTF-8 bytes. Zero means unlimited. When a
	// cap is set, oversize input is rejected, never truncated.
	MaxKeyBytes      int `toml:"max_key_bytes"`
	MaxValueBytes    int `toml:"max_value_bytes"`
	MaxMetadataBytes int `toml:"max_metadata_bytes"`

	// TelemetryEnabled turns on the internal/telemetry tracer/meter
	// instrumentation for this Database's operations.
	TelemetryEnabled bool `toml:"telemetry_enabled"`

	// Logger receives lifecycle notifications. Not decoded from TOML;
	// set programmatically after loading.
	Logger Logger `toml:"-"`
}

// DefaultOptions returns an Options with unlimited size caps, telemetry
// off, and no logger.
func DefaultOptions() Options {
	return Options{}
}

// LoadOptionsFile decodes a TOML file at path into an Options, starting
// from DefaultOptions so any field the file omits keeps its default.
func LoadOptionsFile(path string) (Options, error) {
	opts := DefaultOptions()
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return Options{}, bcerr.Wrap("config.LoadOptionsFile", bcerr.ErrIO, err)
	}
	return opts, nil
}

// Notify calls o.Logger if non-nil; it is always safe to call even on
// the zero Options.
func (o Options) Notify(event string, fields map[string]any) {
	if o.Logger != nil {
		o.Logger(event, fields)
	}
}
