package handler

import (
	"net/http"
	"strconv"
	"time"

	"wangsammo/backend/internal/analysis"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type statusRequest struct {
	Status        string `json:"status" binding:"required"`
	AdminResponse string `json:"admin_response" binding:"max=2000"`
	Priority      *int   `json:"priority"`
}

// DashboardComplaints lists complaints filtered by ?status=, ?category= and
// ?limit=, with counters over every complaint.
func (h *Handler) DashboardComplaints(c *gin.Context) {
	filter := complaint.Filter{
		Status:   models.Status(c.Query("status")),
		Category: models.Category(c.Query("category")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.abort(c, http.StatusBadRequest, "error.badRequest")
			return
		}
		filter.Limit = limit
	}

	var rows, all []models.Complaint
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		rows, err = h.Complaints.List(ctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = h.Complaints.List(ctx, complaint.Filter{})
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"complaints": rows,
		"counts":     analysis.Dashboard(all),
	})
}

func (h *Handler) UpdateComplaintStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.abort(c, http.StatusBadRequest, "error.badRequest")
		return
	}

	updated, err := h.Complaints.UpdateStatus(c.Request.Context(), c.Param("id"), complaint.StatusUpdate{
		Status:        models.Status(req.Status),
		AdminResponse: req.AdminResponse,
		Priority:      req.Priority,
	})
	if err != nil {
		h.fail(c, err, "message.error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaint": updated})
}

// Analytics reports over the complaints of the last ?days= days.
func (h *Handler) Analytics(c *gin.Context) {
	days := config.DefaultAnalyticsDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.abort(c, http.StatusBadRequest, "error.badRequest")
			return
		}
		days = n
	}

	now := h.now()
	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	rows, err := h.Complaints.List(c.Request.Context(), complaint.Filter{Since: &since})
	if err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}
	c.JSON(http.StatusOK, analysis.Analytics(rows, now))
}
