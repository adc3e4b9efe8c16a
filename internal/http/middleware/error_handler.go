package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
	"github.com/ignatzorin/livebook-backend/internal/logger"
	"github.com/ignatzorin/livebook-backend/internal/pkg/apperror"
)

// ErrorHandler отвечает на ошибки, положенные в c.Errors, если ответ ещё не записан.
// Внутренние ошибки маскируются, детали остаются в логе.
func ErrorHandler() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		entry := log.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).WithError(err)
		if apperror.CodeOf(err) == apperror.ErrCodeInternal || apperror.CodeOf(err) == apperror.ErrCodeDatabaseError {
			entry.Error("ошибка обработки запроса")
		} else {
			entry.Debug("запрос отклонён")
		}

		response.Error(c, err)
	}
}

// Recovery превращает панику обработчика в 500 с конвертом ошибки.
func Recovery() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"path":  c.Request.URL.Path,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("паника в обработчике")
				response.Error(c, apperror.New(apperror.ErrCodeInternal, "внутренняя ошибка сервера"))
				c.Abort()
			}
		}()
		c.Next()
	}
}
