package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	idRawSize = 32
	// IDLength is the length of a session id in hex characters.
	IDLength = idRawSize * 2
)

var (
	// ErrIDGeneration is returned when secure randomness is unavailable.
	ErrIDGeneration = errors.New("failed to generate session id")
	// ErrInvalidID is returned for ids that are not 64 lowercase hex characters.
	ErrInvalidID = errors.New("invalid session id")
)

// randReader is swapped in tests to simulate an exhausted entropy source.
var randReader io.Reader = rand.Reader

func newID(nonce string) (string, error) {
	var raw [idRawSize]byte
	if _, err := io.ReadFull(randReader, raw[:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIDGeneration, err)
	}
	if nonce == "" {
		return hex.EncodeToString(raw[:]), nil
	}

	mac := hmac.New(sha512.New, []byte(nonce))
	mac.Write(raw[:])
	sum := mac.Sum(nil)
	return hex.EncodeToString(sum[:idRawSize]), nil
}

// ValidID reports whether id is exactly 64 lowercase hex characters.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// NormalizeID lowercases id and validates it.
func NormalizeID(id string) (string, error) {
	id = strings.ToLower(id)
	if !ValidID(id) {
		return "", ErrInvalidID
	}
	return id, nil
}
