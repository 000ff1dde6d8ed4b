package handler

import (
	"net/http"

	"wangsammo/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "error.badRequest")
		return
	}

	identity, err := h.Auth.SignUp(c.Request.Context(), req.Email, req.Password, auth.ProfileFields{
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		h.fail(c, err, "message.error")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": identity})
}

// SignIn returns a session token for the credentials.
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "error.badRequest")
		return
	}

	session, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "message.error")
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) SignOut(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		h.abort(c, http.StatusUnauthorized, "error.unauthorized")
		return
	}
	if err := h.Auth.SignOut(c.Request.Context(), token); err != nil {
		h.fail(c, err, "message.error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": h.Localizer.GetString(language(c), "message.signedOut")})
}
