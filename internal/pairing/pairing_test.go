package pairing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlphabet(t *testing.T) {
	assert.Len(t, Alphabet, 32)
	for _, c := range "IO01" {
		assert.NotContains(t, Alphabet, string(c))
	}
}

func TestGenerator_Code(t *testing.T) {
	g := NewGenerator(0)
	for i := 0; i < 100; i++ {
		code, err := g.Code()
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected symbol %q", c)
		}
	}
}

func TestGenerator_CodeIsDeterministicForSource(t *testing.T) {
	g := &Generator{Rand: bytes.NewReader([]byte{0, 1, 31, 32, 33, 63}), MaxAttempts: 1}
	code, err := g.Code()
	require.NoError(t, err)
	assert.Equal(t, "AB9AB9", code)
}

func TestGenerator_UniqueCode(t *testing.T) {
	t.Run("retries past collisions", func(t *testing.T) {
		g := NewGenerator(10)
		calls := 0
		code, err := g.UniqueCode(context.Background(), func(ctx context.Context, code string) (bool, error) {
			calls++
			return calls < 3, nil
		})
		require.NoError(t, err)
		assert.Len(t, code, CodeLength)
		assert.Equal(t, 3, calls)
	})

	t.Run("fails closed after max attempts", func(t *testing.T) {
		g := NewGenerator(10)
		calls := 0
		_, err := g.UniqueCode(context.Background(), func(ctx context.Context, code string) (bool, error) {
			calls++
			return true, nil
		})
		assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
		assert.Equal(t, 10, calls)
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		g := NewGenerator(10)
		boom := errors.New("db down")
		_, err := g.UniqueCode(context.Background(), func(ctx context.Context, code string) (bool, error) {
			return false, boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

func TestAPIKey(t *testing.T) {
	g := NewGenerator(0)
	key, err := g.APIKey()
	require.NoError(t, err)
	assert.Len(t, key, 64)

	other, err := g.APIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	stored := HashAPIKey(key)
	assert.True(t, KeyMatches(stored, key))
	assert.False(t, KeyMatches(stored, other))
	assert.False(t, KeyMatches(stored, ""))
	assert.False(t, KeyMatches("", key))
}

func TestPIN(t *testing.T) {
	hash, err := HashPIN("4321")
	require.NoError(t, err)
	assert.True(t, PINMatches(hash, "4321"))
	assert.False(t, PINMatches(hash, "1234"))
	assert.False(t, PINMatches("", "4321"))
}
