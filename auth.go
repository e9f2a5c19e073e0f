package main

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const authCookie = "admin-auth"

const sessionTTL = 7 * 24 * time.Hour

// checkCredentials compares a login against the configured admin account.
// ADMIN_PASSWORD may hold either a bcrypt digest or a plain secret.
func checkCredentials(cfg Config, username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(cfg.AdminUsername)) != 1 {
		return false
	}
	if strings.HasPrefix(cfg.AdminPassword, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassword), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(cfg.AdminPassword)) == 1
}

// issueSession signs the admin cookie value.
func issueSession(secret []byte, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(sessionTTL).Unix(),
	})
	return token.SignedString(secret)
}

// checkSession reports whether the cookie value is a valid admin session.
func checkSession(secret []byte, value string) bool {
	token, err := jwt.Parse(value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return secret, nil
	})
	return err == nil && token.Valid
}
