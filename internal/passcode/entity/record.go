package entity

import "time"

// Record is the single live passcode held for an identifier.
type Record struct {
	// CodeHash is the one-way digest of the issued code; the plaintext is never stored.
	CodeHash  string
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the record is dead at now. A record expires at
// ExpiresAt itself, not after it.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// RemainingSeconds is the lifetime left at now truncated to whole seconds.
func (r *Record) RemainingSeconds(now time.Time) int64 {
	if r.Expired(now) {
		return 0
	}
	return int64(r.ExpiresAt.Sub(now) / time.Second)
}
