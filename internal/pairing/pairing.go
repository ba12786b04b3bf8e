package pairing

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// Alphabet is the 32-symbol pairing code alphabet. I, O, 0 and 1 are left out
// because they are easily confused on a TV screen.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of symbols in a pairing code.
const CodeLength = 6

// DefaultMaxAttempts bounds the collision-retry loop.
const DefaultMaxAttempts = 10

// ErrCodeSpaceExhausted is returned when no free code was found within the attempt budget.
var ErrCodeSpaceExhausted = errors.New("pairing code space exhausted")

// InUseFunc reports whether code currently belongs to an unexpired pairing.
type InUseFunc func(ctx context.Context, code string) (bool, error)

// Generator produces pairing codes and API keys.
type Generator struct {
	Rand        io.Reader
	MaxAttempts int
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{Rand: rand.Reader, MaxAttempts: maxAttempts}
}

// Code returns one random pairing code.
func (g *Generator) Code() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := io.ReadFull(g.Rand, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	out := make([]byte, CodeLength)
	for i, b := range buf {
		// len(Alphabet) is 32, so masking keeps the distribution uniform.
		out[i] = Alphabet[b&31]
	}
	return string(out), nil
}

// UniqueCode draws codes until inUse reports a free one, giving up after
// MaxAttempts draws.
func (g *Generator) UniqueCode(ctx context.Context, inUse InUseFunc) (string, error) {
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		code, err := g.Code()
		if err != nil {
			return "", err
		}
		taken, err := inUse(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// APIKey returns a fresh 256-bit key, hex encoded.
func (g *Generator) APIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(g.Rand, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashAPIKey returns the stored form of an API key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyMatches compares a presented key against a stored hash in constant time.
func KeyMatches(storedHash, presented string) bool {
	if storedHash == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashAPIKey(presented))) == 1
}

// HashPIN returns the bcrypt hash of a kiosk exit PIN.
func HashPIN(pin string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// PINMatches reports whether pin matches the bcrypt hash.
func PINMatches(hash, pin string) bool {
	if hash == "" || pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
