// Package uid generates identifiers for requests and events.
package uid

// StringID generates string identifiers such as correlation ids.
type StringID interface {
	Generate() string
}

// NumberID generates time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
