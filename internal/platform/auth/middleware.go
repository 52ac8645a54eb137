package auth

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"libcirc/internal/platform/apperr"
)

const (
	CtxUserIDKey = "user_id"
	CtxRoleKey   = "role"
	CtxActorKey  = "actor"
)

// RequireAuth: Authorization: Bearer <token> を検証して context に Actor を詰める
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			apperr.Abort(c, apperr.Unauthorized("missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperr.Abort(c, apperr.Unauthorized("invalid Authorization header"))
			return
		}

		actor, err := ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			apperr.Abort(c, err)
			return
		}

		c.Set(CtxUserIDKey, actor.UserID)
		c.Set(CtxRoleKey, actor.Role)
		c.Set(CtxActorKey, actor)
		c.Next()
	}
}

func ParseToken(secret []byte, tokenStr string) (Actor, error) {
	if tokenStr == "" {
		return Actor{}, apperr.Unauthorized("empty token")
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		// alg 固定（none攻撃とか回避）
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || token == nil || !token.Valid {
		return Actor{}, apperr.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, apperr.Unauthorized("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return Actor{}, apperr.Unauthorized("invalid sub")
	}
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(string)
	return Actor{UserID: id, Name: name, Role: role}, nil
}

// RequireRole: 例) admin のみ許可したい時に追加
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || actor.Role == "" {
			apperr.Abort(c, apperr.Forbidden("missing role"))
			return
		}
		if _, allowed := roleSet[actor.Role]; !allowed {
			apperr.Abort(c, apperr.Forbidden("forbidden"))
			return
		}
		c.Next()
	}
}

// ActorFrom returns the principal stored by RequireAuth.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(CtxActorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
