package session

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
	"testing"
	"testing/iotest"
	"time"
)

var idPattern = regexp.MustCompile(`^[a-f0-9]{64}$`)

func TestGeneratedIDsMatchFormat(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 256; i++ {
		s, err := New()
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		if !idPattern.MatchString(s.ID()) {
			t.Fatalf("bad id %q", s.ID())
		}
		if err := s.GenerateID("pinned-nonce"); err != nil {
			t.Fatalf("generate with nonce: %v", err)
		}
		if !idPattern.MatchString(s.ID()) {
			t.Fatalf("bad nonce id %q", s.ID())
		}
		if _, dup := seen[s.ID()]; dup {
			t.Fatalf("duplicate id %q", s.ID())
		}
		seen[s.ID()] = struct{}{}
	}
}

func TestGenerateIDWithNonceUsesHMAC(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	prev := randReader
	randReader = strings.NewReader(string(raw))
	defer func() { randReader = prev }()

	s := &Session{}
	if err := s.GenerateID("nonce"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	mac := hmac.New(sha512.New, []byte("nonce"))
	mac.Write(raw)
	want := hex.EncodeToString(mac.Sum(nil)[:32])
	if s.ID() != want {
		t.Fatalf("expected %s, got %s", want, s.ID())
	}
}

func TestGenerateIDRandomnessFailureKeepsID(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	before := s.ID()

	prev := randReader
	randReader = iotest.ErrReader(errors.New("entropy exhausted"))
	defer func() { randReader = prev }()

	if err := s.GenerateID(""); !errors.Is(err, ErrIDGeneration) {
		t.Fatalf("expected ErrIDGeneration, got %v", err)
	}
	if s.ID() != before {
		t.Fatal("id must be unchanged after a failed rotation")
	}
	if _, err := New(); !errors.Is(err, ErrIDGeneration) {
		t.Fatalf("expected New to fail with ErrIDGeneration, got %v", err)
	}
}

func TestNormalizeID(t *testing.T) {
	upper := strings.Repeat("AB", 32)
	id, err := NormalizeID(upper)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if id != strings.ToLower(upper) {
		t.Fatalf("expected lowercase id, got %s", id)
	}

	for _, bad := range []string{"", "not-hex", strings.Repeat("a", 63), strings.Repeat("a", 65), strings.Repeat("g", 64)} {
		if _, err := NormalizeID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID for %q, got %v", bad, err)
		}
	}
}

func TestSerializeStampsCurrentTime(t *testing.T) {
	prev := nowFunc
	defer func() { nowFunc = prev }()

	nowFunc = func() time.Time { return time.Unix(1000, 0) }
	s, err := New()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	nowFunc = func() time.Time { return time.Unix(2000, 0) }
	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if s.Timestamp() != 1000 {
		t.Fatalf("serialize must not touch the in-memory timestamp, got %d", s.Timestamp())
	}

	var loaded Session
	if err := loaded.Deserialize(data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if loaded.Timestamp() != 2000 {
		t.Fatalf("expected save time 2000, got %d", loaded.Timestamp())
	}
	if loaded.ID() != s.ID() {
		t.Fatalf("id mismatch: %s != %s", loaded.ID(), s.ID())
	}
}

func TestSessionRoundTripDeepTree(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Bags().Set("user_id", Int(42))
	s.Bags().Bag("a").Set("x", String("1")).Bag("b").Set("y", Float(2.5)).Bag("c").Set("z", Bool(true))
	s.Bags().Bag("a").Bag("b").Bag("c").Bag("d").Set("nil", Null())
	s.Meta().Set("csrf", String("token"))

	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	var loaded Session
	if err := loaded.Deserialize(data); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if !loaded.Bags().Equal(s.Bags()) {
		t.Fatal("bags tree differs after round trip")
	}
	if !loaded.Meta().Equal(s.Meta()) {
		t.Fatal("meta differs after round trip")
	}
	if got, _ := loaded.Bags().Get("user_id").AsInt(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestDeserializeFailureLeavesSessionUntouched(t *testing.T) {
	s, err := New()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Bags().Set("k", String("v"))
	id := s.ID()

	if err := s.Deserialize([]byte{1, 2, 3}); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if s.ID() != id || !s.Bags().Has("k") {
		t.Fatal("failed deserialize must not modify the session")
	}
}
