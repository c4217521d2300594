// Package ticket issues and verifies rejoin tickets: short-lived HS256
// tokens proving that a user held a slot in a match.
package ticket

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

const issuer = "settlers"

// DefaultTTL is how long a ticket stays valid after issue.
const DefaultTTL = 15 * time.Minute

var (
	ErrInvalid = errors.New("invalid ticket")
	ErrExpired = errors.New("ticket expired")
	ErrMatch   = errors.New("ticket is for another match")
)

// Claims is the ticket payload. Subject carries the user id.
type Claims struct {
	MatchID string `json:"mid"`
	Slot    int    `json:"slot"`
	jwt.StandardClaims
}

// Issuer signs and checks tickets with one shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an issuer. A zero ttl uses DefaultTTL and a nil now
// uses the wall clock.
func NewIssuer(secret string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("ticket secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Issue signs a ticket for userID holding slot in matchID.
func (i *Issuer) Issue(matchID, userID string, slot int) (string, error) {
	now := i.now()
	claims := Claims{
		MatchID: matchID,
		Slot:    slot,
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(i.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify checks the signature, expiry and match of a ticket and returns its
// claims.
func (i *Issuer) Verify(raw, matchID string) (*Claims, error) {
	parser := &jwt.Parser{SkipClaimsValidation: true}
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Issuer != issuer || claims.Subject == "" {
		return nil, ErrInvalid
	}
	if !claims.VerifyExpiresAt(i.now().Unix(), true) {
		return nil, ErrExpired
	}
	if claims.MatchID != matchID {
		return nil, ErrMatch
	}
	return claims, nil
}
