package utils // package utils provides the credential and session token primitives

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/account-service/internal/apperror"
	"github.com/iliyamo/account-service/internal/model"
)

// DefaultIssuer is the iss claim used when none is configured.
const DefaultIssuer = "account-service"

// ErrSigningKeyMissing is returned by Issue when no secret is configured.
var ErrSigningKeyMissing = errors.New("session signing key is not configured")

// SessionToken is a signed session JWT along with its expiry.
type SessionToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// SessionClaims is the payload of a session token. The subject is the user
// id; Roles mirrors the user's role labels at issuance time.
type SessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. Tokens expire ttl
// after issuance.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// TTL reports how long issued tokens stay valid.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue builds and signs a session token for u.
func (i *TokenIssuer) Issue(u model.User) (SessionToken, error) {
	if len(i.secret) == 0 {
		return SessionToken{}, apperror.Issuance(ErrSigningKeyMissing)
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := SessionClaims{
		Roles: model.NormalizeRoles(u.Roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return SessionToken{}, apperror.Issuance(err)
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// Parse verifies raw and returns its claims. Tokens signed with another
// algorithm, by another issuer, without an expiry, or already expired are
// rejected.
func (i *TokenIssuer) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
