package auth

import (
	"testing"

	"estate-backend/internal/domain"
	"estate-backend/internal/pkg/constants"
	"estate-backend/internal/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyUser_Nil(t *testing.T) {
	u, err := VerifyUser(nil)
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_NoUserID(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"fullname": "Test",
		"email":    "a@b.com",
	})
	assert.Nil(t, u)
	assert.Equal(t, ErrNotAuthenticated, err)
}

func TestVerifyUser_PortalUser(t *testing.T) {
	u, err := VerifyUser(map[string]interface{}{
		"user_id":    "550e8400-e29b-41d4-a716-446655440000",
		"fullname":   "Alice Buyer",
		"email":      "alice@example.com",
		"role":       constants.Portal,
		"partner_id": "660e8400-e29b-41d4-a716-446655440000",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.Portal, u.Role)
	require.NotNil(t, u.PartnerID)
	assert.Equal(t, "660e8400-e29b-41d4-a716-446655440000", *u.PartnerID)
	assert.Nil(t, u.CompanyID)
}

func TestLoginUser(t *testing.T) {
	db := testutil.NewDB(t)
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.User{Fullname: "Agent", Email: "agent@example.com", PasswordHash: hash, Role: constants.Agent}).Error)

	_, err = LoginUser(db, LoginInput{Email: "agent@example.com"})
	assert.Equal(t, ErrEmailPasswordRequired, err)

	_, err = LoginUser(db, LoginInput{Email: "nobody@example.com", Password: "x"})
	assert.Equal(t, ErrInvalidEmail, err)

	_, err = LoginUser(db, LoginInput{Email: "agent@example.com", Password: "wrong"})
	assert.Equal(t, ErrIncorrectPassword, err)

	u, err := LoginUser(db, LoginInput{Email: " Agent@Example.com ", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, "Agent", u.Fullname)
}
