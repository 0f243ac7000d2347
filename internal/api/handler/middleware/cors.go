package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	StorageTokenHeader = "X-StorageApi-Token"
	StackURLHeader     = "X-Stack-Url"
)

// CORS opens the flow endpoints to any origin.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", StorageTokenHeader, StackURLHeader},
		ExposeHeaders:   []string{"Content-Length", RequestIDHeader, "Retry-After"},
		MaxAge:          12 * time.Hour,

		OptionsResponseStatusCode: http.StatusOK,
	})
}
