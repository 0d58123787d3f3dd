// Package clock provides a tiny time abstraction.
//
// Expiry and throttle decisions read time through Clocker so tests can move
// time forward without sleeping.
package clock
