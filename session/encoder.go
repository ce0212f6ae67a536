package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

const (
	sessionFormatVersionCurrent = 1

	// MaxDepth bounds bag nesting, counting the top-level bag as depth 1.
	MaxDepth = 64
)

const (
	tagNull byte = iota
	tagFalse
	tagTrue
	tagInt
	tagFloat
	tagString
)

// ErrDecode is returned for any blob that is not a well formed session record.
var ErrDecode = errors.New("failed to decode session")

// Encode writes the session record: version byte, id, bags, meta, the current
// flash bag and now as unix seconds.
func Encode(s *Session, now time.Time) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	if !ValidID(s.id) {
		return nil, fmt.Errorf("encode session: %w", ErrInvalidID)
	}

	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersionCurrent)
	writeString(&buf, s.id)

	var flashCurrent *Bag
	if s.flash != nil {
		flashCurrent = s.flash.current
	}
	for _, b := range []*Bag{s.bags, s.meta, flashCurrent} {
		if err := writeBag(&buf, b, 1); err != nil {
			return nil, err
		}
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now.Unix()))
	buf.Write(ts[:])

	return buf.Bytes(), nil
}

// Decode parses a record produced by [Encode]. The flash bag that was
// current at encode time becomes Last on the returned session. Every failure
// wraps [ErrDecode].
func Decode(data []byte) (*Session, error) {
	s, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return s, nil
}

func decode(r *bytes.Reader) (*Session, error) {
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	id, err := readString(r)
	if err != nil {
		return nil, err
	}
	if !ValidID(id) {
		return nil, errors.New("invalid serialized session id")
	}

	bags, err := readBag(r, 1)
	if err != nil {
		return nil, err
	}
	meta, err := readBag(r, 1)
	if err != nil {
		return nil, err
	}
	flash, err := readBag(r, 1)
	if err != nil {
		return nil, err
	}

	var ts [8]byte
	if _, err := io.ReadFull(r, ts[:]); err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes", r.Len())
	}

	return &Session{
		id:        id,
		bags:      bags,
		meta:      meta,
		flash:     flashFromStored(flash),
		timestamp: int64(binary.BigEndian.Uint64(ts[:])),
	}, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func writeBag(buf *bytes.Buffer, b *Bag, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("bag nesting exceeds %d levels", MaxDepth)
	}
	if b == nil {
		b = NewBag()
	}

	writeUvarint(buf, uint64(len(b.bags)))
	for _, name := range b.BagNames() {
		writeString(buf, name)
		if err := writeBag(buf, b.bags[name], depth+1); err != nil {
			return err
		}
	}

	writeUvarint(buf, uint64(len(b.props)))
	for _, name := range b.Keys() {
		writeString(buf, name)
		writeValue(buf, b.props[name])
	}
	return nil
}

func writeValue(buf *bytes.Buffer, v Value) {
	var scratch [8]byte
	switch v.kind {
	case KindBool:
		if v.b {
			buf.WriteByte(tagTrue)
		} else {
			buf.WriteByte(tagFalse)
		}
	case KindInt:
		buf.WriteByte(tagInt)
		binary.BigEndian.PutUint64(scratch[:], uint64(v.i))
		buf.Write(scratch[:])
	case KindFloat:
		buf.WriteByte(tagFloat)
		binary.BigEndian.PutUint64(scratch[:], math.Float64bits(v.f))
		buf.Write(scratch[:])
	case KindString:
		buf.WriteByte(tagString)
		writeString(buf, v.s)
	default:
		buf.WriteByte(tagNull)
	}
}

// readLen reads a uvarint that must not exceed the unread input.
func readLen(r *bytes.Reader) (int, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Len()) {
		return 0, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	return int(n), nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readLen(r)
	if err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func readKey(r *bytes.Reader) (string, error) {
	key, err := readString(r)
	if err != nil {
		return "", err
	}
	if key != strings.ToLower(key) {
		return "", fmt.Errorf("non-canonical key %q", key)
	}
	return key, nil
}

func readBag(r *bytes.Reader, depth int) (*Bag, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("bag nesting exceeds %d levels", MaxDepth)
	}
	b := NewBag()

	children, err := readLen(r)
	if err != nil {
		return nil, err
	}
	if children > 0 {
		b.bags = make(map[string]*Bag, children)
	}
	for i := 0; i < children; i++ {
		name, err := readKey(r)
		if err != nil {
			return nil, err
		}
		if _, dup := b.bags[name]; dup {
			return nil, fmt.Errorf("duplicate bag %q", name)
		}
		child, err := readBag(r, depth+1)
		if err != nil {
			return nil, err
		}
		b.bags[name] = child
	}

	props, err := readLen(r)
	if err != nil {
		return nil, err
	}
	if props > 0 {
		b.props = make(map[string]Value, props)
	}
	for i := 0; i < props; i++ {
		name, err := readKey(r)
		if err != nil {
			return nil, err
		}
		if _, dup := b.props[name]; dup {
			return nil, fmt.Errorf("duplicate property %q", name)
		}
		v, err := readValue(r)
		if err != nil {
			return nil, err
		}
		b.props[name] = v
	}

	return b, nil
}

func readValue(r *bytes.Reader) (Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}

	var scratch [8]byte
	switch tag {
	case tagNull:
		return Null(), nil
	case tagFalse:
		return Bool(false), nil
	case tagTrue:
		return Bool(true), nil
	case tagInt:
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return Value{}, err
		}
		return Int(int64(binary.BigEndian.Uint64(scratch[:]))), nil
	case tagFloat:
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return Value{}, err
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(scratch[:]))), nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	default:
		return Value{}, fmt.Errorf("unknown value tag %d", tag)
	}
}
