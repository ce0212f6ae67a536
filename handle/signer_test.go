package handle

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSID = strings.Repeat("ab", 32)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestIssueAndParseEd25519(t *testing.T) {
	pub, priv := newEdKeys(t)
	s, err := NewSigner(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "gosession",
		Audience:      "web",
		KeyID:         "k1",
	})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	token, err := s.Issue(testSID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sid, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sid != testSID {
		t.Fatalf("expected %s, got %s", testSID, sid)
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	s, err := NewSigner(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	claims := Claims{SID: testSID, RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := s.Parse(token); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestParseRejectsExpiredAndForeignAudience(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	s, err := NewSigner(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret, Audience: "web"})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	issued := time.Now()
	s.now = func() time.Time { return issued }
	token, err := s.Issue(testSID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected expired handle to be rejected, got %v", err)
	}

	other, err := NewSigner(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret, Audience: "api"})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	s.now = func() time.Time { return issued }
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected audience mismatch to be rejected, got %v", err)
	}
}

func TestParseRejectsMalformedSID(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	s, err := NewSigner(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	claims := Claims{SID: "not-hex", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := s.Parse(token); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("expected malformed sid to be rejected, got %v", err)
	}
	if _, err := s.Issue("not-hex"); err == nil {
		t.Fatal("expected issue to reject malformed sid")
	}
}

func TestNewSignerValidatesConfig(t *testing.T) {
	cases := []Config{
		{TTL: 0, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("s", 32))},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: MethodEd25519},
		{TTL: time.Minute, SigningMethod: "rs256"},
		{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("s", 32)), Leeway: time.Hour},
	}
	for i, cfg := range cases {
		if _, err := NewSigner(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
