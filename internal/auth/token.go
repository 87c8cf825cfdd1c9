// internal/auth/token.go
//
// Game-scoped credentials.
// A token proves (player name, game id) and expires after a configurable
// TTL (24h by default). Tokens are HS256 JWTs; verification reports
// expired and malformed tokens as distinct errors.

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/hangman/apps/go-server/internal/apperr"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 24 * time.Hour

var (
	ErrTokenExpired = apperr.New(apperr.Credential, "JWT token has expired")
	ErrTokenInvalid = apperr.New(apperr.Credential, "Invalid JWT token")
)

// Claims is what a verified token asserts about its bearer.
type Claims struct {
	Player string
	GameID string
	Admin  bool // issued at game creation, not at join
}

// gameClaims is the JWT payload: sub = player name.
type gameClaims struct {
	GameID string `json:"game_id"`
	Admin  bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies game credentials.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer signing with secret. A non-positive ttl
// falls back to DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a player token for gameID and returns its expiry.
func (i *Issuer) Issue(player, gameID string) (string, time.Time, error) {
	return i.issue(player, gameID, false)
}

// IssueAdmin creates a token carrying the admin role for gameID.
func (i *Issuer) IssueAdmin(player, gameID string) (string, time.Time, error) {
	return i.issue(player, gameID, true)
}

func (i *Issuer) issue(player, gameID string, admin bool) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, gameClaims{
		GameID: gameID,
		Admin:  admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	ss, err := t.SignedString(i.secret)
	return ss, exp, err
}

// Verify checks signature and expiry and extracts the claims.
func (i *Issuer) Verify(token string) (Claims, error) {
	claims := &gameClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Claims{}, ErrTokenExpired
	case err != nil || !parsed.Valid:
		return Claims{}, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.GameID == "" {
		return Claims{}, ErrTokenInvalid
	}
	return Claims{Player: claims.Subject, GameID: claims.GameID, Admin: claims.Admin}, nil
}
