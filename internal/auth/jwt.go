// Package auth issues and verifies the HS256 JWTs that authenticate
// clients opening a document session over internal/transport.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/xerrors"
)

// Claims identifies which client is connecting and to which document.
type Claims struct {
	ClientID string `json:"sub"`
	DocID    string `json:"doc"`
	jwt.RegisteredClaims
}

// Authenticator signs and parses session tokens with a single HS256 secret.
type Authenticator struct {
	secret []byte
}

// New returns an Authenticator using secret to sign and verify tokens.
func New(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Sign issues a token binding clientID to docID, valid for ttl.
func (a *Authenticator) Sign(clientID, docID string, ttl time.Duration) (string, error) {
	claims := &Claims{
		ClientID: clientID,
		DocID:    docID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", xerrors.Errorf("auth: sign: %w", err)
	}
	return token, nil
}

// Parse verifies tokenString and returns its claims.
func (a *Authenticator) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xerrors.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, xerrors.Errorf("auth: parse: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
