package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := sign(t, jwt.MapClaims{"sub": "alice", "exp": exp.Unix()})

	got, ok := ExpiresAt(tok)
	if !ok {
		t.Fatalf("expected exp to be found")
	}
	if !got.Equal(exp) {
		t.Fatalf("expected %v, got %v", exp, got)
	}
	if Subject(tok) != "alice" {
		t.Fatalf("unexpected subject: %q", Subject(tok))
	}
}

func TestExpired(t *testing.T) {
	past := sign(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	future := sign(t, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})

	if !Expired(past, time.Now()) {
		t.Fatalf("expected past token to be expired")
	}
	if Expired(future, time.Now()) {
		t.Fatalf("expected future token to be live")
	}
	if Expired("opaque-token", time.Now()) {
		t.Fatalf("opaque tokens are never expired client-side")
	}
}
