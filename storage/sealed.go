package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	sealFormatVersion = 1

	sealMinSecretLength = 16
	sealMinSaltLength   = 16

	sealArgonTime    uint32 = 1
	sealArgonMemory  uint32 = 64 * 1024 // in KB
	sealArgonThreads uint8  = 4
)

// Sealed encrypts blobs before handing them to an inner Storage. Each blob is
// sealed with XChaCha20-Poly1305 under a random nonce, with the session id as
// associated data, so a blob copied to another id fails to open.
//
// The key is derived once from secret and salt with Argon2id.
type Sealed struct {
	inner Storage
	aead  cipher.AEAD
}

// NewSealed wraps inner. secret and salt must each be at least 16 bytes.
func NewSealed(inner Storage, secret, salt []byte) (*Sealed, error) {
	if inner == nil {
		return nil, errors.New("sealed storage requires an inner storage")
	}
	if len(secret) < sealMinSecretLength {
		return nil, fmt.Errorf("seal secret must be >= %d bytes", sealMinSecretLength)
	}
	if len(salt) < sealMinSaltLength {
		return nil, fmt.Errorf("seal salt must be >= %d bytes", sealMinSaltLength)
	}

	key := argon2.IDKey(secret, salt, sealArgonTime, sealArgonMemory, sealArgonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &Sealed{inner: inner, aead: aead}, nil
}

// Inner returns the wrapped backend.
func (s *Sealed) Inner() Storage {
	return s.inner
}

func (s *Sealed) seal(id string, blob []byte) ([]byte, error) {
	out := make([]byte, 1+s.aead.NonceSize(), 1+s.aead.NonceSize()+len(blob)+s.aead.Overhead())
	out[0] = sealFormatVersion
	nonce := out[1:]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal nonce: %w", err)
	}
	return s.aead.Seal(out, nonce, blob, []byte(id)), nil
}

func (s *Sealed) open(id string, sealed []byte) ([]byte, error) {
	headerLen := 1 + s.aead.NonceSize()
	if len(sealed) < headerLen+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: sealed blob too short", ErrCorrupt)
	}
	if sealed[0] != sealFormatVersion {
		return nil, fmt.Errorf("%w: unsupported seal version %d", ErrCorrupt, sealed[0])
	}
	plain, err := s.aead.Open(nil, sealed[1:headerLen], sealed[headerLen:], []byte(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return plain, nil
}

func (s *Sealed) Has(ctx context.Context, id string) (bool, error) {
	return s.inner.Has(ctx, id)
}

func (s *Sealed) Read(ctx context.Context, id string) ([]byte, error) {
	sealed, err := s.inner.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.open(id, sealed)
}

func (s *Sealed) Write(ctx context.Context, id string, blob []byte) error {
	sealed, err := s.seal(id, blob)
	if err != nil {
		return err
	}
	return s.inner.Write(ctx, id, sealed)
}

func (s *Sealed) Delete(ctx context.Context, id string) error {
	return s.inner.Delete(ctx, id)
}

func (s *Sealed) LastModified(ctx context.Context, id string) (int64, error) {
	return s.inner.LastModified(ctx, id)
}

func (s *Sealed) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

func (s *Sealed) Flush(ctx context.Context) error {
	return s.inner.Flush(ctx)
}
