package handler

import (
	"errors"
	"net/http"
	"strings"

	"wangsammo/backend/internal/localization"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ClientKeyHeader scopes the submission guard to one browser. Requests
// without it fall back to the client IP.
const ClientKeyHeader = "X-Client-Key"

const (
	langKey     = "lang"
	identityKey = "identity"
)

// withLanguage resolves the response language from ?lang= or Accept-Language.
func (h *Handler) withLanguage(c *gin.Context) {
	c.Set(langKey, h.Localizer.Resolve(c.Query("lang"), c.GetHeader("Accept-Language")))
	c.Next()
}

// withIdentity resolves the session token, if any. A missing or bad token
// leaves the request anonymous.
func (h *Handler) withIdentity(c *gin.Context) {
	identity, err := h.Auth.CurrentUser(c.Request.Context(), bearerToken(c))
	if err != nil {
		h.fail(c, err, "message.error")
		return
	}
	if identity != nil {
		c.Set(identityKey, identity)
	}
	c.Next()
}

func (h *Handler) requireUser(c *gin.Context) {
	if currentIdentity(c) == nil {
		h.abort(c, http.StatusUnauthorized, "error.unauthorized")
		return
	}
	c.Next()
}

// requireOfficial checks the stored role, so promotions and demotions apply
// without signing in again.
func (h *Handler) requireOfficial(c *gin.Context) {
	identity := currentIdentity(c)
	profile, err := h.Profiles.GetProfile(c.Request.Context(), identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		h.abort(c, http.StatusForbidden, "error.forbidden")
		return
	}
	if err != nil {
		h.fail(c, err, "message.error")
		return
	}
	if !profile.IsOfficial() {
		h.abort(c, http.StatusForbidden, "error.forbidden")
		return
	}
	c.Next()
}

func language(c *gin.Context) string {
	if lang := c.GetString(langKey); lang != "" {
		return lang
	}
	return localization.DefaultLanguage
}

func currentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket requests, so ?access_token= is accepted as well.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("access_token")
}

func clientKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(ClientKeyHeader)); key != "" {
		return key
	}
	return c.ClientIP()
}
