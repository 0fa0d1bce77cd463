package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prajjwolcodes/KinBech/internal/auth"
	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/user"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	jwtCfg := &config.JWTConfig{Secret: "test-secret"}
	svc := NewUserService(mysql.NewUserRepository(db), jwtCfg)

	u, err := svc.Register(context.Background(), "sita", "sita@example.com", "hunter2", "seller")
	require.NoError(t, err)
	require.Equal(t, user.RoleSeller, u.Role)
	require.NotEqual(t, "hunter2", u.Password)

	token, err := svc.Login(context.Background(), "sita", "hunter2")
	require.NoError(t, err)

	claims, err := auth.ParseToken(jwtCfg, token)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID)
	require.Equal(t, "sita", claims.Username)
	require.Equal(t, user.RoleSeller, claims.Role)

	_, err = svc.Login(context.Background(), "sita", "wrong")
	require.Error(t, err)
	_, err = svc.Login(context.Background(), "nobody", "hunter2")
	require.Error(t, err)
}

func TestRegisterDefaultsUnknownRoleToBuyer(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(mysql.NewUserRepository(db), &config.JWTConfig{Secret: "test-secret"})

	u, err := svc.Register(context.Background(), "ram", "", "pw", "superuser")
	require.NoError(t, err)
	require.Equal(t, user.RoleBuyer, u.Role)

	_, err = svc.Register(context.Background(), "", "", "pw", "buyer")
	require.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Register(context.Background(), "hari", "", "", "buyer")
	require.ErrorIs(t, err, ErrInvalidRequest)
}
