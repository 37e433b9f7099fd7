package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger is a Gin middleware for logging HTTP requests and responses.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		method := c.Request.Method
		uri := c.Request.RequestURI
		statusCode := c.Writer.Status()
		clientIP := c.ClientIP()

		c.Writer.Header().Set("X-Response-Time", latency.String())

		log.Printf("[GIN] %s | %3d | %13v | %15s | %-7s %s",
			startTime.Format("2006/01/02 - 15:04:05"),
			statusCode,
			latency,
			clientIP,
			method,
			uri,
		)
	}
}

// Cors is a Gin middleware for enabling Cross-Origin Resource Sharing (CORS).
// It allows requests from any origin.
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, User-Agent")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// Recovery turns any panic into the generic apology reply. The chat
// platform renders whatever it receives, so the webhook must never
// answer with an unhandled crash.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("ERROR: [Recovery] Panic while handling %s: %v\n%s", c.Request.URL.Path, rec, debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"reply": "Oups, une erreur est survenue."})
			}
		}()
		c.Next()
	}
}
