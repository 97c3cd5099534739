package api

import (
	"net/http"

	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/gin-gonic/gin"
)

// AuthHandler serves the public sign-in surface.
type AuthHandler struct {
	guard *auth.Guard
}

func NewAuthHandler(guard *auth.Guard) *AuthHandler {
	return &AuthHandler{guard: guard}
}

func (h *AuthHandler) Register(router gin.IRoutes) {
	router.GET("/login", h.login)
	router.GET("/demo/login", h.guard.DemoLogin)
	router.GET("/demo/logout", h.guard.DemoLogout)
}

func (h *AuthHandler) login(c *gin.Context) {
	if _, ok := h.guard.Authorize(c.Request); ok {
		c.Redirect(http.StatusSeeOther, "/ops")
		return
	}
	render(c, http.StatusOK, "login.html", gin.H{"Title": "Sign in", "DemoMode": h.guard.DemoMode()})
}
