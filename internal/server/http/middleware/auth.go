package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "lab_access_token"
	sessionMaxAge     = 7 * 24 * 60 * 60
	loginPath         = "/login"
	apiPrefix         = "/api/"
)

// TokenParser validates session tokens.
type TokenParser interface {
	ParseToken(token string) error
}

// SessionRequired redirects every page request without a valid session
// cookie to the login page. The login page and the /api/ endpoints stay
// reachable without a session.
func SessionRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == loginPath || strings.HasPrefix(path, apiPrefix) {
			c.Next()
			return
		}

		token, err := c.Cookie(SessionCookieName)
		if err != nil || token == "" || parser.ParseToken(token) != nil {
			c.Redirect(http.StatusSeeOther, loginPath)
			c.Abort()
			return
		}

		c.Next()
	}
}

// SetSessionCookie writes the session token cookie for one week.
func SetSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookieName, token, sessionMaxAge, "/", "", secure, true)
}
