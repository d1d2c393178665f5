package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger logs one line per request after the handler chain finishes.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		target := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}

		log.Printf("[HTTP] %d %s %s from=%s in=%v%s",
			c.Writer.Status(),
			c.Request.Method,
			target,
			c.ClientIP(),
			time.Since(start),
			errSuffix(c),
		)
	}
}

func errSuffix(c *gin.Context) string {
	if len(c.Errors) == 0 {
		return ""
	}
	return " errors=" + c.Errors.String()
}

// CORS allows cross-origin requests from the dashboard.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
