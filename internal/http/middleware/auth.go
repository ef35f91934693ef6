package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ertargyn/realty-backend/internal/models"
	"github.com/ertargyn/realty-backend/internal/service"
)

// ContextAuthKey ключ AuthContext в gin.Context.
const ContextAuthKey = "authContext"

// AuthMiddleware проверяет JWT access токен и кладёт в контекст
// AuthContext с идентификатором пользователя и набором ролей.
func AuthMiddleware(tokens *service.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "требуется авторизация"},
			})
			return
		}

		raw := strings.TrimPrefix(auth, "Bearer ")
		userID, roles, err := tokens.ParseAccess(raw)
		if err != nil || userID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"code": "UNAUTHORIZED", "message": "токен невалиден"},
			})
			return
		}

		c.Set(ContextAuthKey, models.AuthContext{
			UserID: userID,
			Roles:  models.RoleSetFromStrings(roles),
		})
		c.Next()
	}
}
