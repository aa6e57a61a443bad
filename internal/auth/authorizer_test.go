package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

func testOperation() models.Operation {
	return models.Operation{ID: 1700000000000, Kind: models.KindQuery, Name: "GetUser"}
}

func TestAuthenticateAllowed(t *testing.T) {
	a := NewAuthorizer("secret")

	claims, err := a.Authenticate(testOperation(), true)
	require.NoError(t, err)
	assert.Equal(t, "demo-user", claims.Subject)
	assert.Equal(t, "1700000000000", claims.ID)
	assert.Equal(t, models.KindQuery, claims.OperationKind)
}

func TestAuthenticateDenied(t *testing.T) {
	a := NewAuthorizer("secret")

	_, err := a.Authenticate(testOperation(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := NewAuthorizer("secret")
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }

	token, err := a.issue(testOperation(), a.secret)
	require.NoError(t, err)

	a.now = func() time.Time { return issued.Add(2 * tokenTTL) }
	_, err = a.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewAuthorizer("").Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
