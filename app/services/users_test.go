package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/auth"
)

func TestRegisterAndLogin(t *testing.T) {
	h := setup(t)
	tok, err := h.svc.Auth.Register(h.ctx, services.RegisterInput{Name: "Jane", Email: "jane@example.test", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, tok.User.Role)
	assert.NotEqual(t, "secret-pass", tok.User.Password)

	claims, err := auth.ValidateToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok.User.ID.Hex(), claims.UserID)

	_, err = h.svc.Auth.Register(h.ctx, services.RegisterInput{Name: "Jane", Email: "JANE@example.test", Password: "secret-pass"})
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = h.svc.Auth.Login(h.ctx, services.LoginInput{Email: "jane@example.test", Password: "wrong-pass"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = h.svc.Auth.Login(h.ctx, services.LoginInput{Email: "nobody@example.test", Password: "secret-pass"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	again, err := h.svc.Auth.Login(h.ctx, services.LoginInput{Email: "jane@example.test", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, tok.User.ID, again.User.ID)

	refreshed, err := h.svc.Auth.Refresh(h.ctx, again.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func defaults(u *models.User) int {
	n := 0
	for _, a := range u.Addresses {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestAddressesKeepOneDefault(t *testing.T) {
	h := setup(t)
	c := h.customer(t, "jane@example.test")

	u, err := h.svc.Users.AddAddress(h.ctx, c.UserID, address())
	require.NoError(t, err)
	assert.True(t, u.Addresses[0].IsDefault)

	u, err = h.svc.Users.AddAddress(h.ctx, c.UserID, address())
	require.NoError(t, err)
	assert.Equal(t, 1, defaults(u))
	second := u.Addresses[1].ID

	u, err = h.svc.Users.SetDefaultAddress(h.ctx, c.UserID, second.Hex())
	require.NoError(t, err)
	assert.True(t, u.Addresses[1].IsDefault)
	assert.Equal(t, 1, defaults(u))

	u, err = h.svc.Users.RemoveAddress(h.ctx, c.UserID, second.Hex())
	require.NoError(t, err)
	require.Len(t, u.Addresses, 1)
	assert.True(t, u.Addresses[0].IsDefault)

	_, err = h.svc.Users.RemoveAddress(h.ctx, c.UserID, second.Hex())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAdminUserManagement(t *testing.T) {
	h := setup(t)
	c := h.customer(t, "jane@example.test")
	a := services.Caller{UserID: h.customer(t, "boss@example.test").UserID, Role: models.RoleAdmin}

	u, err := h.svc.Users.SetRole(h.ctx, c.UserID.Hex(), models.RolePharmacy)
	require.NoError(t, err)
	assert.Equal(t, models.RolePharmacy, u.Role)

	list, total, err := h.svc.Users.List(h.ctx, models.RolePharmacy, services.NewPage(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, c.UserID, list[0].ID)

	assert.ErrorIs(t, h.svc.Users.Delete(h.ctx, a.UserID.Hex(), a), services.ErrForbidden)
	require.NoError(t, h.svc.Users.Delete(h.ctx, c.UserID.Hex(), a))
	_, err = h.svc.Users.Get(h.ctx, c.UserID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
