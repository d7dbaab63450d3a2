package testutil

import "sync"

// FixedToken generates the same handle token every time.
//
// This enables deterministic log output and golden snapshot comparison.
// Unlike FixedTokens which returns tokens in sequence, this generator
// always returns the same token.
//
// Thread-safety: FixedToken is stateless and safe for concurrent use.
type FixedToken struct {
	token string
}

// NewFixedToken creates a new fixed token generator.
//
// If token is empty, Generate() returns "test-handle-default".
func NewFixedToken(token string) *FixedToken {
	if token == "" {
		token = "test-handle-default"
	}
	return &FixedToken{token: token}
}

// Generate returns the fixed token.
//
// Implements recordstore.TokenGenerator.
func (g *FixedToken) Generate() string {
	return g.token
}

// FixedTokens returns predetermined handle tokens in order.
//
// Thread-safety: FixedTokens is safe for concurrent use via internal mutex.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator that returns tokens in order.
//
// Example:
//
//	gen := NewFixedTokens("h-1", "h-2")
//	gen.Generate() // "h-1"
//	gen.Generate() // "h-2"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedTokens(tokens ...string) *FixedTokens {
	return &FixedTokens{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed. This catches a test that
// opened more handles than it expected.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedTokens: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
