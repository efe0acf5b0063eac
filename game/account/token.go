package account

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kasuganosora/dreamrealm/game/clock"
)

// Claims is the JWT payload.
type Claims struct {
	AccountID int64 `json:"account_id"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokens returns a signer using secret. A nil clock uses wall time.
func NewTokens(secret string, ttl time.Duration, clk clock.Clock) *Tokens {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, clock: clk}
}

// TTL is the lifetime of issued tokens.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Generate signs a token for accountID.
func (t *Tokens) Generate(accountID int64) (string, error) {
	now := t.clock.Now()
	claims := &Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			// Two tokens minted in the same second must still differ, since
			// the token string is the session key.
			ID: newTokenID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token string and returns its claims.
func (t *Tokens) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(tk *jwt.Token) (interface{}, error) {
		if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.clock.Now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
