package config

import (
	"io"
	"time"
)

// Config retrieves typed configuration values by dotted key.
//
// Missing keys or values that cannot be converted yield the zero value of the
// requested type; callers apply their own defaults.
type Config interface {
	io.Closer

	// GetSecond reads an integer key as a number of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads an integer key as a number of minutes.
	GetMinute(key string) time.Duration

	GetInt(key string) int
	GetInt32(key string) int32
	GetUint16(key string) uint16
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetArray reads a list key. Both YAML sequences and the comma separated
	// form "<a>,<b>,..." are accepted; blank elements are dropped.
	GetArray(key string) []string

	// OnChange registers fn to run after the backing source is reloaded.
	// Sources that never reload accept the registration and never call fn.
	OnChange(fn func())
}
