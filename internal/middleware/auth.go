package middleware

import (
	"strings"

	"github.com/kataras/iris/v12"

	"github.com/prajjwolcodes/KinBech/internal/auth"
	"github.com/prajjwolcodes/KinBech/internal/config"
)

// Context value keys set by RequireAuth.
const (
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyRole     = "role"
)

// RequireAuth validates the bearer token and stashes the principal on the
// request context.
func RequireAuth(cfg *config.JWTConfig) iris.Handler {
	return func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"status": "error", "message": "missing token"})
			return
		}
		claims, err := auth.ParseToken(cfg, token)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"status": "error", "message": "invalid token"})
			return
		}
		ctx.Values().Set(KeyUserID, claims.UserID)
		ctx.Values().Set(KeyUsername, claims.Username)
		ctx.Values().Set(KeyRole, claims.Role)
		ctx.Next()
	}
}

// RequireRole stops the request unless the principal holds one of the roles.
func RequireRole(roles ...string) iris.Handler {
	return func(ctx iris.Context) {
		role := ctx.Values().GetString(KeyRole)
		for _, r := range roles {
			if role == r {
				ctx.Next()
				return
			}
		}
		ctx.StopWithJSON(403, iris.Map{"status": "error", "message": "access denied"})
	}
}
