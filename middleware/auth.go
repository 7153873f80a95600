package middleware

import (
	"strings"

	"food-ordering-api/apperror"
	"food-ordering-api/models"
	"food-ordering-api/token"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// Authorize is the pure role check: claims must carry one of required.
// No roles means any authenticated caller.
func Authorize(claims *token.Claims, required ...models.Role) error {
	if claims == nil || !claims.Role.Valid() {
		return apperror.New(apperror.Forbidden, "no role in request")
	}
	if len(required) == 0 {
		return nil
	}
	for _, r := range required {
		if claims.Role == r {
			return nil
		}
	}
	return apperror.New(apperror.Forbidden, "access denied, required role(s): "+rolesString(required))
}

// AuthRequired validates the bearer access token and injects claims into context
func AuthRequired(tokens *token.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			AbortWithError(c, apperror.New(apperror.InvalidToken, "authorization header required (Bearer <token>)"))
			return
		}
		claims, err := tokens.Verify(strings.TrimSpace(raw), token.TypeAccess)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RoleRequired enforces that caller has one of the allowed roles
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := Authorize(GetClaims(c), roles...); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func rolesString(roles []models.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// GetClaims returns the verified claims, or nil outside AuthRequired.
func GetClaims(c *gin.Context) *token.Claims {
	val, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := val.(*token.Claims)
	return claims
}

// GetUserID extracts caller user ID from context
func GetUserID(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Subject
	}
	return ""
}

// GetRole extracts caller role from context
func GetRole(c *gin.Context) models.Role {
	if claims := GetClaims(c); claims != nil {
		return claims.Role
	}
	return models.Role{}
}
