package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ViewIDContextKey is a gin context key for the browser view identifier.
	ViewIDContextKey = "viewID"
	viewCookieName   = "lab_view_id"
)

// ViewID assigns every browser a stable view identifier kept in a cookie.
// Missing or malformed identifiers are replaced with a fresh UUID.
func ViewID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(viewCookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(viewCookieName, id, 0, "/", "", false, true)
		}
		c.Set(ViewIDContextKey, id)
		c.Next()
	}
}
