package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/livebook-backend/internal/domain/entity"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/http/middleware"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
)

// currentUser достаёт пользователя, положенного AuthMiddleware.
// При отсутствии сам отвечает 401.
func currentUser(c *gin.Context) (uuid.UUID, valueobject.PartyRole, bool) {
	userID, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, "", false
	}
	id, ok := userID.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "некорректный формат user_id")
		return uuid.Nil, "", false
	}
	role, _ := c.Get(middleware.ContextRoleKey)
	partyRole, _ := role.(valueobject.PartyRole)
	return id, partyRole, true
}

func pathID(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// expectedVersion читает If-Match. Кавычки ETag допускаются.
func expectedVersion(c *gin.Context) (*int, bool) {
	raw := strings.Trim(strings.TrimPrefix(c.GetHeader("If-Match"), "W/"), `"`)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, "If-Match должен содержать версию бронирования")
		return nil, false
	}
	return &v, true
}

func setETag(c *gin.Context, b *entity.Booking) {
	c.Header("ETag", `"`+strconv.Itoa(b.Version)+`"`)
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
