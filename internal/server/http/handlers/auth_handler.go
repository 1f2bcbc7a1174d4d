package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/labtracker/internal/domain/errors"
	"github.com/polkiloo/labtracker/internal/server/http/dto"
	"github.com/polkiloo/labtracker/internal/server/http/middleware"
)

const loginPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Lab Orders</title></head>
<body>
<form method="post" action="/login">
<label>Password <input type="password" name="password" autofocus></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`

// AuthHandler processes login and password re-verification.
type AuthHandler struct {
	facade        AuthFacade
	secureCookies bool
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade, secureCookies bool) *AuthHandler {
	return &AuthHandler{facade: facade, secureCookies: secureCookies}
}

// LoginPage handles GET /login.
func (h *AuthHandler) LoginPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
}

// Login handles POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var form dto.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, dto.LoginFailure{Incorrect: true})
		return
	}

	token, err := h.facade.Login(form.Password)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidPassword) {
			c.JSON(http.StatusBadRequest, dto.LoginFailure{Incorrect: true})
			return
		}
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, token, h.secureCookies)
	c.Redirect(http.StatusSeeOther, "/")
}

// VerifyWipePassword handles POST /api/verify-wipe-password.
func (h *AuthHandler) VerifyWipePassword(c *gin.Context) {
	var req dto.PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	c.JSON(http.StatusOK, dto.PasswordCheckResponse{Valid: h.facade.VerifyPassword(req.Password)})
}
