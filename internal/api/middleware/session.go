package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/projecthub/portal/internal/core/domain"
)

// Context keys set by Session and the guards.
const (
	keySessionID = "session_id"
	keyUser      = "user"
	keyToken     = "token"
)

// SessionConfig describes the signed session cookie.
type SessionConfig struct {
	CookieName string
	Secret     string
	TTL        time.Duration
	Secure     bool
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Session identifies the browser session. The cookie is an HS256 JWT whose
// sid claim names the server-side session; a missing, expired or tampered
// cookie is replaced with a fresh session ID.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if ck, err := c.Cookie(cfg.CookieName); err == nil {
				sid = parseSessionCookie(ck.Value, cfg.Secret)
			}

			if sid == "" {
				var err error
				sid, err = newSessionID()
				if err != nil {
					return err
				}
				value, err := signSessionCookie(sid, cfg.Secret, cfg.TTL, time.Now())
				if err != nil {
					return err
				}
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    value,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(keySessionID, sid)
			return next(c)
		}
	}
}

func parseSessionCookie(value, secret string) string {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return ""
	}
	return claims.SessionID
}

func signSessionCookie(sid, secret string, ttl time.Duration, now time.Time) (string, error) {
	claims := sessionClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SessionID returns the session ID set by Session, or "".
func SessionID(c echo.Context) string {
	sid, _ := c.Get(keySessionID).(string)
	return sid
}

// CurrentUser returns the user admitted by a guard, or nil.
func CurrentUser(c echo.Context) *domain.User {
	u, _ := c.Get(keyUser).(*domain.User)
	return u
}

// Token returns the bearer token of the user admitted by a guard, or "".
func Token(c echo.Context) string {
	tok, _ := c.Get(keyToken).(string)
	return tok
}
