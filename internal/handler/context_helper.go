package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-centre-api/internal/middleware"
)

func actorID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
