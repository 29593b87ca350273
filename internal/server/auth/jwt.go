// Package auth issues and verifies the bearer tokens handed out at login.
// A token only wraps a session id; it carries no expiry of its own, so a
// token outlives its session and is rejected when the session is gone.
package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: {"id": "<session id>"}.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"id"`
}

type TokenService struct {
	secret []byte
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret}
}

// Issue signs a token embedding sessionID with HS256.
func (s *TokenService) Issue(sessionID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{SessionID: sessionID})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Verify checks the signature and returns the embedded session id. Any
// malformed token, foreign signature or missing id is common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	if claims.SessionID == "" {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, errors.New("missing id claim"))
	}

	return claims.SessionID, nil
}
