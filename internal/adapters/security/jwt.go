package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viralforge/affiliate-core/internal/ports"
)

// HMACVerifier validates HS256 bearer tokens issued by the platform auth
// service. The subject claim carries the affiliate or admin id.
type HMACVerifier struct {
	secret []byte
	issuer string
}

type affiliateClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewHMACVerifier(secret, issuer string) (*HMACVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &HMACVerifier{secret: []byte(secret), issuer: issuer}, nil
}

func (v *HMACVerifier) Verify(raw string) (ports.AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(raw, &affiliateClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return ports.AuthClaims{}, err
	}
	claims, ok := parsed.Claims.(*affiliateClaims)
	if !ok || !parsed.Valid {
		return ports.AuthClaims{}, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ports.AuthClaims{}, errors.New("token subject is required")
	}
	return ports.AuthClaims{SubjectID: claims.Subject, Role: claims.Role}, nil
}

// Sign issues a token for the given subject. Used by local tooling and tests.
func (v *HMACVerifier) Sign(subjectID, role string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, affiliateClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

var _ ports.TokenVerifier = (*HMACVerifier)(nil)
