// Package testutil provides helpers shared by package tests: temporary
// stores, fixed handle tokens, and log capture without timestamps.
package testutil
