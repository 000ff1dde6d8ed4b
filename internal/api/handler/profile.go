package handler

import (
	"errors"
	"net/http"
	"strings"

	"wangsammo/backend/internal/analysis"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type profileRequest struct {
	FullName    string `json:"full_name" binding:"max=200"`
	PhoneNumber string `json:"phone_number" binding:"max=32"`
}

// GetProfile returns the caller's profile, their complaints and the counts
// over them.
func (h *Handler) GetProfile(c *gin.Context) {
	identity := currentIdentity(c)

	var (
		profile *models.UserProfile
		rows    []models.Complaint
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		profile, err = h.Profiles.GetProfile(ctx, identity.ID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = h.Complaints.List(ctx, complaint.Filter{UserID: identity.ID})
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.abort(c, http.StatusNotFound, "error.notFound")
			return
		}
		h.fail(c, err, "error.queryFailed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":    profile,
		"email":      identity.Email,
		"complaints": rows,
		"stats":      analysis.Profile(rows),
	})
}

// UpdateProfile changes the display name and phone number.
func (h *Handler) UpdateProfile(c *gin.Context) {
	identity := currentIdentity(c)

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "error.badRequest")
		return
	}

	profile, err := h.Profiles.GetProfile(c.Request.Context(), identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		profile = &models.UserProfile{ID: identity.ID, Role: models.RoleResident}
	} else if err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}

	profile.FullName = strings.TrimSpace(req.FullName)
	profile.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err := h.Profiles.SaveProfile(c.Request.Context(), profile); err != nil {
		h.fail(c, err, "message.error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
