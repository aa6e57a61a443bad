// Package auth backs the simulated authentication stage. It signs a short
// lived HS256 identity token for each operation and verifies it the way the
// gateway's authorizer would. No identity provider is involved.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// ErrInvalidCredentials is returned when a token fails verification
var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	issuer      = "appsync-flow-simulator"
	demoSubject = "demo-user"
	tokenTTL    = time.Minute
)

// Claims carried by the simulated identity token
type Claims struct {
	OperationKind models.OperationKind `json:"op_kind"`
	jwt.RegisteredClaims
}

type Authorizer struct {
	secret []byte
	now    func() time.Time
}

func NewAuthorizer(secret string) *Authorizer {
	if secret == "" {
		secret = "appsync-sim-secret"
	}
	return &Authorizer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Authenticate issues a token for op and verifies it. When allow is false the
// token is signed with a rotated key, so verification fails the same way a
// forged or stale credential would.
func (a *Authorizer) Authenticate(op models.Operation, allow bool) (*Claims, error) {
	key := a.secret
	if !allow {
		key = append([]byte("rotated:"), a.secret...)
	}

	token, err := a.issue(op, key)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return a.Verify(token)
}

// Verify parses and validates a token signed with the authorizer secret
func (a *Authorizer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return claims, nil
}

func (a *Authorizer) issue(op models.Operation, key []byte) (string, error) {
	now := a.now()
	claims := Claims{
		OperationKind: op.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   demoSubject,
			ID:        strconv.FormatInt(op.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
