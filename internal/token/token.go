// Package token mints and validates the signed bearer tokens gating
// every operation. Tokens are stateless: signature and expiry are the
// only checks possible without a database round trip.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
)

// Claims carried by every token. A token without a project grant only
// authorizes identity-level operations (listing one's own projects).
type Claims struct {
	IsFacility      bool   `json:"fac"`
	ProjectID       string `json:"project,omitempty"`
	ProjectVerified bool   `json:"project_verified,omitempty"`
	jwt.RegisteredClaims
}

// Subject returns the user public id the token was issued to.
func (c *Claims) Subject() string {
	return c.RegisteredClaims.Subject
}

// HasGrant reports whether the token carries a verified grant for the
// given project.
func (c *Claims) HasGrant(projectID string) bool {
	return c.ProjectVerified && c.ProjectID == projectID
}

// Issuer signs and verifies tokens with a process-wide HMAC secret,
// read-only after startup.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// IssueIdentity mints a session-length token carrying identity and role
// only. It authorizes nothing project-scoped by itself.
func (i *Issuer) IssueIdentity(subject string, isFacility bool, ttl time.Duration) (string, error) {
	return i.sign(Claims{
		IsFacility: isFacility,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(i.now().Add(ttl)),
		},
	})
}

// IssueGrant mints a short-lived token bound to exactly one project,
// marked verified. Only the policy guard calls this.
func (i *Issuer) IssueGrant(subject string, isFacility bool, projectID string, ttl time.Duration) (string, error) {
	return i.sign(Claims{
		IsFacility:      isFacility,
		ProjectID:       projectID,
		ProjectVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(i.now()),
			ExpiresAt: jwt.NewNumericDate(i.now().Add(ttl)),
		},
	})
}

func (i *Issuer) sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %v", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and structure. No database lookup:
// current role and active status are the policy guard's job.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errvalues.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", errvalues.ErrTokenMalformed, err)
	}
	if !tok.Valid || claims.Subject() == "" || claims.ExpiresAt == nil {
		return nil, errvalues.ErrTokenMalformed
	}
	return claims, nil
}
