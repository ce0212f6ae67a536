package session

import "time"

// nowFunc is swapped in tests to pin serialize timestamps.
var nowFunc = time.Now

// Session aggregates an identifier, a general purpose bag, a metadata bag,
// a flash bag and the unix time at which it was last serialized.
//
// Session is not safe for concurrent use; the owning Manager serializes
// access to it.
type Session struct {
	id        string
	bags      *Bag
	meta      *Bag
	flash     *FlashBag
	timestamp int64
}

// New creates a session with a fresh random id and empty bags.
func New() (*Session, error) {
	s := &Session{
		bags:      NewBag(),
		meta:      NewBag(),
		flash:     NewFlashBag(),
		timestamp: nowFunc().Unix(),
	}
	if err := s.GenerateID(""); err != nil {
		return nil, err
	}
	return s, nil
}

// GenerateID replaces the session id with a new one drawn from 32 secure
// random bytes. A non-empty nonce keys an HMAC-SHA512 over those bytes and
// the first 32 bytes of the MAC become the id. On failure the previous id is
// kept and [ErrIDGeneration] is returned.
func (s *Session) GenerateID(nonce string) error {
	id, err := newID(nonce)
	if err != nil {
		return err
	}
	s.id = id
	return nil
}

// ID returns the 64-character hex session id.
func (s *Session) ID() string { return s.id }

// Bags returns the general purpose bag.
func (s *Session) Bags() *Bag { return s.bags }

// Meta returns the bag reserved for framework metadata.
func (s *Session) Meta() *Bag { return s.meta }

// Flash returns the flash bag.
func (s *Session) Flash() *FlashBag { return s.flash }

// Timestamp returns the unix time recorded at the last serialization, or the
// creation time for a session never serialized.
func (s *Session) Timestamp() int64 { return s.timestamp }

// Serialize encodes the session, stamping it with the current time. The
// in-memory timestamp is not modified.
func (s *Session) Serialize() ([]byte, error) {
	return Encode(s, nowFunc())
}

// Deserialize decodes data into s. The receiver is only modified when the
// whole record decodes and validates.
func (s *Session) Deserialize(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
