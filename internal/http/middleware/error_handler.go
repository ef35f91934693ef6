package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ertargyn/realty-backend/internal/logger"
	"github.com/ertargyn/realty-backend/internal/pkg/apperror"
)

// ErrorHandler обрабатывает ошибки централизованно: прикладные ошибки
// транслируются в стабильный код и HTTP статус, внутренние маскируются.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				logInternal(c, err)
			}
			c.JSON(appErr.HTTPStatus, gin.H{
				"error": gin.H{"code": appErr.Code, "message": appErr.Message},
			})
			return
		}

		logInternal(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"code": apperror.ErrCodeInternal, "message": "внутренняя ошибка сервера"},
		})
	}
}

func logInternal(c *gin.Context, err error) {
	if logger.Log == nil {
		return
	}
	logger.Log.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}).Error("Request error")
}
