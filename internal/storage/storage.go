package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wangsammo/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// Storage is the full persistence surface of the service: the complaints
// table, accounts and profiles, the point-award ledger and the Redis-backed
// session and feed helpers.
type Storage interface {
	ComplaintCodeExists(ctx context.Context, code string) (bool, error)
	CreateComplaint(ctx context.Context, c *models.Complaint, award *models.PointAward) error
	GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error)
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id string, u ComplaintUpdate) (*models.Complaint, error)

	CreateAccount(ctx context.Context, acc *models.UserAccount, profile *models.UserProfile) error
	GetAccountByEmail(ctx context.Context, email string) (*models.UserAccount, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, p *models.UserProfile) error
	SetProfileRole(ctx context.Context, userID, role string) error

	ApplyPointAward(ctx context.Context, complaintCode string) (bool, error)
	MarkAwardFailed(ctx context.Context, complaintCode, reason string) error
	ListPendingAwards(ctx context.Context, limit, maxAttempts int) ([]models.PointAward, error)

	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	AcquireSubmitLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseSubmitLock(ctx context.Context, key, token string) (bool, error)
	PublishEvent(ctx context.Context, ev models.FeedEvent) error
}

// ComplaintFilter narrows ListComplaints. Zero values mean "no filter".
type ComplaintFilter struct {
	Status       models.Status
	Category     models.Category
	UserID       string
	Since        *time.Time
	WithLocation bool
	Limit        int
	// Columns restricts the selected columns, for public projections.
	Columns []string
}

// ComplaintUpdate is an officials' status change. Last write wins.
type ComplaintUpdate struct {
	Status        models.Status
	AdminResponse *string
	Priority      *int
	UpdatedAt     time.Time
}

type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Logger *zap.Logger
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		DB:     db,
		Redis:  rdb,
		Logger: logger,
	}
}

// Migrate creates or updates every table the service owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.Complaint{},
		&models.UserAccount{},
		&models.UserProfile{},
		&models.PointAward{},
	)
}

// ComplaintCodeExists reports whether a tracking code is already taken.
func (s *Service) ComplaintCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("complaint_id = ?", code).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateComplaint inserts the complaint and, when award is non-nil, records
// the pending point award in the same transaction.
func (s *Service) CreateComplaint(ctx context.Context, c *models.Complaint, award *models.PointAward) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		if award == nil {
			return nil
		}
		award.ComplaintCode = c.ComplaintID
		if award.Status == "" {
			award.Status = models.AwardPending
		}
		return tx.Create(award).Error
	})
	if err != nil {
		s.Logger.Error("failed to save complaint",
			zap.String("complaint_id", c.ComplaintID), zap.Error(err))
		return err
	}
	return nil
}

// GetComplaintByCode returns the complaint with the exact tracking code, or
// nil without an error when there is none.
func (s *Service) GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).Where("complaint_id = ?", code).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetComplaintByID returns a complaint by its internal ID.
func (s *Service) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	var c models.Complaint
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplaints returns complaints newest first.
func (s *Service) ListComplaints(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if len(f.Columns) > 0 {
		q = q.Select(f.Columns)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", *f.Since)
	}
	if f.WithLocation {
		q = q.Where("location_lat IS NOT NULL AND location_lng IS NOT NULL")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var out []models.Complaint
	if err := q.Order("created_at desc").Find(&out).Error; err != nil {
		s.Logger.Error("failed to list complaints", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// UpdateComplaintStatus applies an officials' update without any version
// check and returns the stored row.
func (s *Service) UpdateComplaintStatus(ctx context.Context, id string, u ComplaintUpdate) (*models.Complaint, error) {
	updates := map[string]interface{}{
		"status":         u.Status,
		"admin_response": u.AdminResponse,
		"updated_at":     u.UpdatedAt,
	}
	if u.Priority != nil {
		updates["priority"] = *u.Priority
	}

	res := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("update complaint %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetComplaintByID(ctx, id)
}
