package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type AuthController struct {
	auth  *services.AuthService
	users *services.UserService
}

// Register POST /api/v1/auth/register
func (ac *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	tok, err := ac.auth.Register(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(tok)
}

// Login POST /api/v1/auth/login
func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	tok, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(tok)
}

// Refresh POST /api/v1/auth/refresh
func (ac *AuthController) Refresh(c *ctx.Context) {
	var in struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if !c.BindJSON(&in) {
		return
	}
	tok, err := ac.auth.Refresh(c.Context(), in.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(tok)
}

func (ac *AuthController) Me(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	u, err := ac.users.Get(c.Context(), who.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (ac *AuthController) UpdateMe(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var in services.ProfileInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := ac.users.UpdateProfile(c.Context(), who.UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (ac *AuthController) AddAddress(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var in models.Address
	if !c.BindJSON(&in) {
		return
	}
	u, err := ac.users.AddAddress(c.Context(), who.UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(u)
}

func (ac *AuthController) SetDefaultAddress(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	u, err := ac.users.SetDefaultAddress(c.Context(), who.UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (ac *AuthController) RemoveAddress(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	u, err := ac.users.RemoveAddress(c.Context(), who.UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}
