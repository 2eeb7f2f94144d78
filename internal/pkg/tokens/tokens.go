// Package tokens inspects bearer tokens without verifying them. The console
// never holds the signing key; it only reads claims to schedule refreshes.
package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parser = jwt.NewParser()

// ExpiresAt returns the exp claim of a JWT. ok is false for opaque or
// malformed tokens and for tokens without exp.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	ts, err := claims.GetExpirationTime()
	if err != nil || ts == nil {
		return time.Time{}, false
	}
	return ts.Time, true
}

// Expired reports whether token carries an exp at or before now. Opaque
// tokens are never considered expired; the server decides.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && !now.Before(exp)
}

// Subject returns the sub claim, or "".
func Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}
