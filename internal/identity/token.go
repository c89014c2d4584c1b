package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmerrifield20/ledgerd/internal/ledger"
)

// MinKeyLen is the minimum HMAC signing key length in bytes.
const MinKeyLen = 32

// ErrWeakKey is returned by NewTokenIssuer for keys shorter than MinKeyLen.
var ErrWeakKey = errors.New("signing key is too short")

// CallerClaims are the JWT claims of a caller token. The subject is the
// account ID the bearer acts as.
type CallerClaims struct {
	jwt.RegisteredClaims
	Account string `json:"account"`
}

// Caller returns the account ID carried by the claims.
func (c *CallerClaims) Caller() ledger.AccountID { return ledger.AccountID(c.Account) }

// TokenIssuer issues and verifies caller tokens signed with HS256.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	key:    shared HMAC secret, at least MinKeyLen bytes.
//	issuer: the "iss" claim value.
//	ttl:    token lifetime (default: 24 hours).
func NewTokenIssuer(key []byte, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if len(key) < MinKeyLen {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrWeakKey, len(key), MinKeyLen)
	}
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		key:    append([]byte(nil), key...),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

// Issue creates a signed caller token for account.
func (t *TokenIssuer) Issue(account ledger.AccountID) (string, error) {
	if err := account.Validate(); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   account.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
		Account: account.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a caller token, returning its claims on success.
func (t *TokenIssuer) Verify(tokenStr string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&CallerClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.key, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Account != claims.Subject {
		return nil, fmt.Errorf("token subject does not match account")
	}
	if err := claims.Caller().Validate(); err != nil {
		return nil, err
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }
