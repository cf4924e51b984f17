package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves the acting user behind every inbound event. Tokens are
// HMAC-signed JWTs carrying the user id in the "id" claim, matching what the
// account service issues at login.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify returns the user id for a valid token, ErrInvalidToken otherwise.
func (v *Verifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	id, ok := claims["id"].(string)
	if !ok || strings.TrimSpace(id) == "" {
		return "", ErrInvalidToken
	}
	return id, nil
}

// Sign issues a token for a user id. Used by tests and local tooling; the
// production issuer lives in the account service.
func (v *Verifier) Sign(userID string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID})
	return t.SignedString(v.secret)
}
