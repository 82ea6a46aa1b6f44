package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/auth"
)

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone"    validate:"max=30"`
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	Name     string `json:"name"     validate:"required,max=120"`
	Phone    string `json:"phone"    validate:"max=30"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=user pharmacy doctor admin"`
}

// Tokens is the login/register response body.
type Tokens struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type AuthService struct {
	users repositories.UserRepository
}

func issue(u *models.User) (*Tokens, error) {
	access, err := auth.GenerateToken(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, err
	}
	return &Tokens{User: u, AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(auth.AccessTTL().Seconds())}, nil
}

// Register creates a customer account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Tokens, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, invalid("password", "The password must be between 8 and 72 characters.")
		}
		return nil, err
	}
	u := &models.User{
		Name:      in.Name,
		Email:     strings.TrimSpace(in.Email),
		Password:  hash,
		Role:      models.RoleUser,
		Phone:     in.Phone,
		Addresses: []models.Address{},
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, duplicate(err, "email already registered")
	}
	return issue(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Tokens, error) {
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return issue(u)
}

// Refresh exchanges a valid token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, token string) (*Tokens, error) {
	claims, err := auth.ValidateToken(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return issue(u)
}

type UserService struct {
	users repositories.UserRepository
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, found(err, "user")
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, in ProfileInput) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name, u.Phone = in.Name, in.Phone
	if in.Password != "" {
		if u.Password, err = auth.HashPassword(in.Password); err != nil {
			return nil, invalid("password", "The password must be between 8 and 72 characters.")
		}
	}
	return u, s.users.Update(ctx, u)
}

// AddAddress appends an address. The first address, or one flagged
// isDefault, becomes the only default.
func (s *UserService) AddAddress(ctx context.Context, id primitive.ObjectID, a models.Address) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.ID = primitive.NewObjectID()
	if len(u.Addresses) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		for i := range u.Addresses {
			u.Addresses[i].IsDefault = false
		}
	}
	u.Addresses = append(u.Addresses, a)
	return u, s.users.Update(ctx, u)
}

func (s *UserService) SetDefaultAddress(ctx context.Context, id primitive.ObjectID, addressID string) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	aid, err := ParseID(addressID, "address")
	if err != nil {
		return nil, err
	}
	hit := false
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = u.Addresses[i].ID == aid
		hit = hit || u.Addresses[i].IsDefault
	}
	if !hit {
		return nil, notFound("address")
	}
	return u, s.users.Update(ctx, u)
}

// RemoveAddress deletes an address; when it was the default the first
// remaining one takes over.
func (s *UserService) RemoveAddress(ctx context.Context, id primitive.ObjectID, addressID string) (*models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	aid, err := ParseID(addressID, "address")
	if err != nil {
		return nil, err
	}
	kept := make([]models.Address, 0, len(u.Addresses))
	wasDefault, hit := false, false
	for _, a := range u.Addresses {
		if a.ID == aid {
			hit, wasDefault = true, a.IsDefault
			continue
		}
		kept = append(kept, a)
	}
	if !hit {
		return nil, notFound("address")
	}
	if wasDefault && len(kept) > 0 {
		kept[0].IsDefault = true
	}
	u.Addresses = kept
	return u, s.users.Update(ctx, u)
}

func (s *UserService) List(ctx context.Context, role string, p Page) ([]models.User, int64, error) {
	return s.users.List(ctx, repositories.UserFilter{Role: role, Page: p})
}

func (s *UserService) SetRole(ctx context.Context, id string, role string) (*models.User, error) {
	oid, err := ParseID(id, "user")
	if err != nil {
		return nil, err
	}
	u, err := s.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	u.Role = role
	return u, s.users.Update(ctx, u)
}

// Delete removes a user. Their orders, feedback, tickets and prescriptions
// are kept.
func (s *UserService) Delete(ctx context.Context, id string, caller Caller) error {
	oid, err := ParseID(id, "user")
	if err != nil {
		return err
	}
	if oid == caller.UserID {
		return fmt.Errorf("%w: you cannot delete your own account here", ErrForbidden)
	}
	return found(s.users.Delete(ctx, oid), "user")
}
