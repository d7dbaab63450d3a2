// Package ir provides the value representation for record fields.
//
// This package contains value types and their serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: only the kinds declared here implement it
//   - Numbers are float64 and must be finite; integers beyond 2^53 use BigInt
//   - Object keys are ordered by UTF-16 code units when serialized (RFC 8785)
//   - Canonical JSON is the only encoding used for equality and hashing
package ir
