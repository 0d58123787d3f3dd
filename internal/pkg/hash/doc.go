// Package hash provides one-way digests for short-lived secrets.
//
// Callers store only the digest and later check a plaintext candidate against
// it with Verify, which compares in constant time.
package hash
