// Package idempotency guards side effects with a Redis-backed state machine
// so that redelivered work runs at most once to completion.
package idempotency
