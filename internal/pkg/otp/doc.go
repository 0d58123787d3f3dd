// Package otp generates short numeric one-time codes.
//
// Codes come from crypto/rand and are uniform over a fixed-width decimal
// range, so every code has exactly the configured number of digits.
package otp
