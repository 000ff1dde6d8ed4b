package storage

import (
	"context"
	"errors"

	"wangsammo/backend/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateAccount stores a new account together with its profile.
func (s *Service) CreateAccount(ctx context.Context, acc *models.UserAccount, profile *models.UserProfile) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(acc).Error; err != nil {
			return err
		}
		profile.ID = acc.ID
		return tx.Create(profile).Error
	})
}

// GetAccountByEmail returns ErrNotFound when no account uses the address.
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	var acc models.UserAccount
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// GetProfile returns ErrNotFound when the user has no profile yet.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveProfile upserts a profile.
func (s *Service) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	return s.DB.WithContext(ctx).Save(p).Error
}

// SetProfileRole changes the role of an existing profile.
func (s *Service) SetProfileRole(ctx context.Context, userID, role string) error {
	res := s.DB.WithContext(ctx).Model(&models.UserProfile{}).
		Where("id = ?", userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyPointAward credits a pending award to the user's profile. It reports
// false without an error when the award was already applied, so calling it
// again for the same complaint never double-credits.
func (s *Service) ApplyPointAward(ctx context.Context, complaintCode string) (bool, error) {
	applied := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var award models.PointAward
		if err := tx.Where("complaint_code = ?", complaintCode).First(&award).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if award.Status == models.AwardApplied {
			return nil
		}

		// Conditional flip: a concurrent apply that got here first wins.
		res := tx.Model(&models.PointAward{}).
			Where("id = ? AND status = ?", award.ID, models.AwardPending).
			Updates(map[string]interface{}{
				"status":     models.AwardApplied,
				"attempts":   gorm.Expr("attempts + 1"),
				"last_error": "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		res = tx.Model(&models.UserProfile{}).
			Where("id = ?", award.UserID).
			Update("points", gorm.Expr("points + ?", award.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			profile := models.UserProfile{ID: award.UserID, Points: award.Amount, Role: models.RoleResident}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.Logger.Info("point award applied", zap.String("complaint_id", complaintCode))
	}
	return applied, nil
}

// MarkAwardFailed bumps the attempt counter of a pending award.
func (s *Service) MarkAwardFailed(ctx context.Context, complaintCode, reason string) error {
	return s.DB.WithContext(ctx).Model(&models.PointAward{}).
		Where("complaint_code = ? AND status = ?", complaintCode, models.AwardPending).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

// ListPendingAwards returns pending awards that have not exhausted their attempts, oldest first.
func (s *Service) ListPendingAwards(ctx context.Context, limit, maxAttempts int) ([]models.PointAward, error) {
	var out []models.PointAward
	q := s.DB.WithContext(ctx).
		Where("status = ?", models.AwardPending).
		Order("created_at asc")
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
