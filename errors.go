package goSession

import (
	"errors"

	"github.com/MrEthical07/goSession/handle"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/storage"
)

var (
	// ErrRandomnessFailure is returned when secure randomness is unavailable for a new session id.
	ErrRandomnessFailure = session.ErrIDGeneration
	// ErrInvalidIDFormat is returned when a session id is not 64 hexadecimal characters.
	ErrInvalidIDFormat = session.ErrInvalidID
	// ErrSessionNotFound is returned when a well formed session id is absent from storage.
	ErrSessionNotFound = errors.New("session does not exist")
	// ErrDecodeFailure is returned when a stored blob cannot be decoded into a session.
	ErrDecodeFailure = session.ErrDecode
	// ErrStorageFailure wraps IO, permission and network failures of the storage backend.
	ErrStorageFailure = storage.ErrBackend
	// ErrInvalidHandle is returned when a signed session handle fails verification.
	ErrInvalidHandle = handle.ErrInvalidHandle
	// ErrHandleThrottled is returned when a client has too many rejected handles in the current window.
	ErrHandleThrottled = errors.New("too many rejected session handles")
	// ErrHandlesDisabled is returned by handle operations when no signer is configured.
	ErrHandlesDisabled = errors.New("session handles disabled")
	// ErrSessionNotLoaded is returned when an operation needs a session held by this manager.
	ErrSessionNotLoaded = errors.New("session not loaded by this manager")
	// ErrManagerClosed is returned by operations on a closed manager.
	ErrManagerClosed = errors.New("session manager closed")
)

// IsStorageFailure reports whether err came from the storage backend rather
// than from the caller's input or stored data.
func IsStorageFailure(err error) bool {
	return errors.Is(err, ErrStorageFailure)
}
