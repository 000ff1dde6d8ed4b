package handler

import (
	"errors"
	"net/http"

	"wangsammo/backend/internal/analysis"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func (h *Handler) PublicStats(c *gin.Context) {
	rows, err := h.Complaints.List(c.Request.Context(), complaint.Filter{})
	if err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}
	c.JSON(http.StatusOK, analysis.Public(rows, h.now()))
}

// HomeStats returns the global totals and, for a signed-in caller, their
// points. Both are loaded concurrently.
func (h *Handler) HomeStats(c *gin.Context) {
	identity := currentIdentity(c)

	var (
		rows   []models.Complaint
		points int
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		rows, err = h.Complaints.List(ctx, complaint.Filter{})
		return err
	})
	if identity != nil {
		g.Go(func() error {
			profile, err := h.Profiles.GetProfile(ctx, identity.ID)
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			points = profile.Points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}

	c.JSON(http.StatusOK, analysis.Home(rows, points))
}
