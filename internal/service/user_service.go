package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/prajjwolcodes/KinBech/internal/auth"
	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/user"
)

// UserService registration and login issuing role-carrying JWTs.
type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

// NewUserService creates the user service.
func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

// Register creates an account. Unknown roles default to buyer.
func (s *UserService) Register(ctx context.Context, username, email, password, role string) (*user.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidRequest
	}
	if role != user.RoleBuyer && role != user.RoleSeller && role != user.RoleAdmin {
		role = user.RoleBuyer
	}
	u := &user.User{
		Username: username,
		Email:    email,
		Role:     role,
		Salt:     "kinbech",
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and returns a signed token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return "", errors.New("invalid username or password")
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", errors.New("invalid username or password")
	}
	return auth.GenerateToken(s.jwt, u.ID, u.Username, u.Role)
}
