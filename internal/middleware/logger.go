package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger middleware logs HTTP requests
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		user := UserID(c)
		if user == "" {
			user = "-"
		}
		log.Printf("[HTTP] %s %s %d %v user=%s ip=%s %s",
			c.Request.Method,
			path,
			c.Writer.Status(),
			time.Since(start),
			user,
			c.ClientIP(),
			c.Errors.String(),
		)
	}
}
