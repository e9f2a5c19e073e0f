package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// requestLogger tags every request with an id and emits one structured
// access log line.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(start).String(),
		}).Info("request")
	}
}

// adminAuthMiddleware is the auth gate on admin mutations: the only check is
// a valid signed admin cookie.
func adminAuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(authCookie)
		if err != nil || !checkSession(secret, value) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
