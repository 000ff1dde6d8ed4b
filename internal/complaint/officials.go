package complaint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"go.uber.org/zap"
)

// publicColumns is what anonymous visitors may see of other people's complaints.
var publicColumns = []string{
	"id", "complaint_id", "title", "category", "status", "priority",
	"location_text", "location_lat", "location_lng", "vote_count",
	"created_at", "updated_at",
}

// Filter narrows the officials' complaint list.
type Filter struct {
	Status   models.Status
	Category models.Category
	UserID   string
	Since    *time.Time
	Limit    int
}

// StatusUpdate is an official's change to a complaint.
type StatusUpdate struct {
	Status        models.Status
	AdminResponse string
	Priority      *int
}

// List returns complaints newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Complaint, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, f.Category)
	}

	rows, err := s.store.ListComplaints(ctx, storage.ComplaintFilter{
		Status:   f.Status,
		Category: f.Category,
		UserID:   f.UserID,
		Since:    f.Since,
		Limit:    f.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return rows, nil
}

// Recent returns the latest complaints in their public projection.
func (s *Service) Recent(ctx context.Context) ([]models.Complaint, error) {
	rows, err := s.store.ListComplaints(ctx, storage.ComplaintFilter{
		Limit:   config.RecentComplaintsLimit,
		Columns: publicColumns,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return rows, nil
}

// MapMarkers returns every complaint that has coordinates, public projection.
func (s *Service) MapMarkers(ctx context.Context) ([]models.Complaint, error) {
	rows, err := s.store.ListComplaints(ctx, storage.ComplaintFilter{
		WithLocation: true,
		Columns:      publicColumns,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return rows, nil
}

// UpdateStatus sets status, response and optionally priority. There is no
// version check: concurrent updates overwrite each other.
func (s *Service) UpdateStatus(ctx context.Context, id string, u StatusUpdate) (*models.Complaint, error) {
	if !u.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, u.Status)
	}
	if u.Priority != nil && (*u.Priority < 1 || *u.Priority > 4) {
		return nil, fmt.Errorf("%w: priority must be between 1 and 4", ErrValidation)
	}

	var response *string
	if r := strings.TrimSpace(u.AdminResponse); r != "" {
		response = &r
	}

	c, err := s.store.UpdateComplaintStatus(ctx, id, storage.ComplaintUpdate{
		Status:        u.Status,
		AdminResponse: response,
		Priority:      u.Priority,
		UpdatedAt:     s.now().UTC(),
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	s.logger.Info("complaint status updated",
		zap.String("complaint_id", c.ComplaintID),
		zap.String("status", string(c.Status)))
	s.publish(ctx, models.EventComplaintUpdated, c)
	return c, nil
}

// AwardPending re-applies point awards left pending by failed attempts and
// reports how many were credited.
func (s *Service) AwardPending(ctx context.Context) (int, error) {
	awards, err := s.store.ListPendingAwards(ctx, config.AwardRetryBatchSize, config.AwardRetryLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	applied := 0
	for _, a := range awards {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		if s.applyAward(ctx, a.ComplaintCode) {
			applied++
		}
	}
	if len(awards) > 0 {
		s.logger.Info("pending point awards processed",
			zap.Int("pending", len(awards)), zap.Int("applied", applied))
	}
	return applied, nil
}
