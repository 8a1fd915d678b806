package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/groph-vtu/internal/transport/api/middlewares"
)

func getUserIDFromContext(c *gin.Context) int64 {
	return c.GetInt64(middlewares.CurrentUserIDKey)
}
