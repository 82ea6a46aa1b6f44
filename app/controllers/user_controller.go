package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

// UserController is the admin user management API.
type UserController struct {
	users *services.UserService
}

func (uc *UserController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := uc.users.List(c.Context(), c.Query("role"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (uc *UserController) UpdateRole(c *ctx.Context) {
	var in services.RoleInput
	if !c.BindJSON(&in) {
		return
	}
	u, err := uc.users.SetRole(c.Context(), c.Param("id"), in.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(u)
}

func (uc *UserController) Destroy(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	if err := uc.users.Delete(c.Context(), c.Param("id"), who); err != nil {
		fail(c, err)
		return
	}
	c.Message("User deleted")
}
