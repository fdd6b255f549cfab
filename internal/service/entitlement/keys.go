package entitlement

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// MinKeyLength is the shortest license or trial key ever issued.
const MinKeyLength = 32

// DefaultKeyAttempts bounds regeneration after key collisions.
const DefaultKeyAttempts = 5

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// largest multiple of len(keyAlphabet) that fits in a byte; bytes above it are rejected.
const keyByteCeiling = 256 - 256%len(keyAlphabet)

var (
	// ErrKeyCollision is returned by an insert callback when the key is already taken.
	ErrKeyCollision = errors.New("entitlement key collision")
	// ErrKeysExhausted is returned when every attempt collided.
	ErrKeysExhausted = errors.New("entitlement key attempts exhausted")
)

// KeyGenerator produces candidate keys.
type KeyGenerator interface {
	Generate() (string, error)
}

// RandomKeyGenerator draws alphanumeric keys from crypto/rand.
type RandomKeyGenerator struct {
	Length int
	Reader io.Reader
}

// Generate returns a key of at least MinKeyLength characters from [A-Za-z0-9].
func (g RandomKeyGenerator) Generate() (string, error) {
	length := g.Length
	if length < MinKeyLength {
		length = MinKeyLength
	}
	reader := g.Reader
	if reader == nil {
		reader = rand.Reader
	}

	key := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(key) < length {
		if _, err := io.ReadFull(reader, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= keyByteCeiling {
				continue
			}
			key = append(key, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(key) == length {
				break
			}
		}
	}
	return string(key), nil
}

// IssueKey generates keys and hands each to try until one is accepted. try signals a taken key
// with ErrKeyCollision; any other error aborts immediately.
func IssueKey(gen KeyGenerator, attempts int, try func(key string) error) (string, error) {
	if attempts <= 0 {
		attempts = DefaultKeyAttempts
	}
	for i := 0; i < attempts; i++ {
		key, err := gen.Generate()
		if err != nil {
			return "", err
		}
		err = try(key)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrKeyCollision) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrKeysExhausted, attempts)
}
