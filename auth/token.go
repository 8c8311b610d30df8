// Package auth handles the session token the account collaborator issues to
// the client. The token both authenticates the websocket dial and carries
// the immutable session identity.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"polyglot-chat/domain/chat"
	"polyglot-chat/errors"
)

// SessionClaims defines the structure of the data stored inside the JWT.
type SessionClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Language    string `json:"language,omitempty"`
	jwt.RegisteredClaims
}

// MintSessionToken creates a signed session JWT. The account service does
// this in production; tests and local tooling use it directly.
func MintSessionToken(secret []byte, session chat.Session, ttl time.Duration) (string, error) {
	claims := &SessionClaims{
		UserID:      session.UserID,
		DisplayName: session.DisplayName,
		AvatarRef:   session.AvatarRef,
		Language:    session.PreferredLanguage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "polyglot-chat",
		},
	}

	// HS256: HMAC with SHA256, shared secret with the account service.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseSessionToken validates signature and expiration, then extracts the
// session identity the rest of the client treats as immutable.
func ParseSessionToken(secret []byte, tokenString string) (chat.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return chat.Session{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return chat.Session{}, errors.ErrInvalidToken
	}
	if claims.UserID == "" {
		return chat.Session{}, fmt.Errorf("%w: missing user id", errors.ErrInvalidToken)
	}

	return chat.Session{
		UserID:            claims.UserID,
		DisplayName:       claims.DisplayName,
		AvatarRef:         claims.AvatarRef,
		PreferredLanguage: claims.Language,
	}, nil
}
