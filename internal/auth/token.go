package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	purposeSession = "session"
	purposeOAuth   = "oauth_state"

	sessionTTL = 24 * time.Hour
	stateTTL   = 10 * time.Minute
)

var ErrInvalidToken = errors.New("invalid token")

// Tokens issues and verifies HS256 tokens. Session tokens authenticate the
// owner; state tokens carry the owner through the Google consent redirect.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

func (t *Tokens) IssueSession(ownerID uint) (string, error) {
	return t.issue(ownerID, purposeSession, sessionTTL)
}

func (t *Tokens) ParseSession(token string) (uint, error) {
	return t.parse(token, purposeSession)
}

func (t *Tokens) IssueState(ownerID uint) (string, error) {
	return t.issue(ownerID, purposeOAuth, stateTTL)
}

func (t *Tokens) ParseState(token string) (uint, error) {
	return t.parse(token, purposeOAuth)
}

func (t *Tokens) issue(ownerID uint, purpose string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", ownerID),
		"pur": purpose,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *Tokens) parse(raw, purpose string) (uint, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	if p, _ := claims["pur"].(string); p != purpose {
		return 0, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return 0, ErrInvalidToken
	}

	var id uint
	if _, err := fmt.Sscanf(sub, "%d", &id); err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
