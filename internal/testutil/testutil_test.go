package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedToken_ReturnsSameToken(t *testing.T) {
	gen := NewFixedToken("test-handle-123")

	assert.Equal(t, "test-handle-123", gen.Generate())
	assert.Equal(t, "test-handle-123", gen.Generate())
}

func TestFixedToken_EmptyTokenDefault(t *testing.T) {
	assert.Equal(t, "test-handle-default", NewFixedToken("").Generate())
}

func TestFixedTokens_InOrder(t *testing.T) {
	gen := NewFixedTokens("h-1", "h-2")

	assert.Equal(t, "h-1", gen.Generate())
	assert.Equal(t, "h-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestFixedTokens_ThreadSafe(t *testing.T) {
	tokens := make([]string, 100)
	for i := range tokens {
		tokens[i] = "tok"
	}
	gen := NewFixedTokens(tokens...)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				gen.Generate()
			}
		}()
	}
	wg.Wait()

	assert.Panics(t, func() { gen.Generate() })
}

func TestOpenStore_UsableAndIsolated(t *testing.T) {
	a := OpenStore(t)
	b := OpenStore(t)

	require.NoError(t, a.DB().PingContext(context.Background()))
	require.NoError(t, b.DB().PingContext(context.Background()))
	assert.NotSame(t, a, b)
}

func TestNewLogger_DropsTime(t *testing.T) {
	logger, buf := NewLogger()
	logger.Debug("hello", "table", "users")

	assert.Equal(t, "level=DEBUG msg=hello table=users\n", buf.String())
}
