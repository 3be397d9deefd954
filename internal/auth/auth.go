// Package auth issues and validates the signed identity tokens that every
// other component trusts for owner identity.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenType = "access"

// ErrInvalidToken is returned for every verification failure. Callers are
// not told whether the signature, the expiry, or the encoding was at fault.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity carried by a verified token. Claims are built per
// request and never persisted.
type Claims struct {
	Subject  string
	IssuedAt time.Time
	Expiry   time.Time
	Type     string
}

type Verifier struct {
	secret []byte
	ttl    time.Duration
}

func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// Issue signs an access token for subject with the configured lifetime.
func (v *Verifier) Issue(subject string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"iat":  now.Unix(),
		"exp":  now.Add(v.ttl).Unix(),
		"type": tokenType,
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Any failure yields ErrInvalidToken.
func (v *Verifier) Verify(token string) (Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return claimsFromMap(mapClaims), nil
}

// ValidateClaims reports whether claims are semantically complete: subject,
// issued-at and expiry all present, subject non-empty after trimming, and
// the type tag (when set) equal to "access". This is independent of Verify;
// a token can be cryptographically valid yet carry incomplete claims.
func ValidateClaims(c Claims) bool {
	if strings.TrimSpace(c.Subject) == "" {
		return false
	}
	if c.IssuedAt.IsZero() || c.Expiry.IsZero() {
		return false
	}
	if c.Type != "" && c.Type != tokenType {
		return false
	}
	return true
}

func claimsFromMap(m jwt.MapClaims) Claims {
	var c Claims
	if sub, ok := m["sub"].(string); ok {
		c.Subject = sub
	}
	if iat, ok := numericClaim(m["iat"]); ok {
		c.IssuedAt = time.Unix(iat, 0).UTC()
	}
	if exp, ok := numericClaim(m["exp"]); ok {
		c.Expiry = time.Unix(exp, 0).UTC()
	}
	if typ, ok := m["type"].(string); ok {
		c.Type = typ
	}
	return c
}

func numericClaim(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
