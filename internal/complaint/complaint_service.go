// Package complaint implements the resident-facing complaint workflows:
// submitting a complaint with its attachments, tracking it by code, and the
// officials' triage operations on top of the same store.
package complaint

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store is the slice of storage the complaint flows use.
type Store interface {
	ComplaintCodeExists(ctx context.Context, code string) (bool, error)
	CreateComplaint(ctx context.Context, c *models.Complaint, award *models.PointAward) error
	GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id string, u storage.ComplaintUpdate) (*models.Complaint, error)
	ApplyPointAward(ctx context.Context, complaintCode string) (bool, error)
	MarkAwardFailed(ctx context.Context, complaintCode, reason string) error
	ListPendingAwards(ctx context.Context, limit, maxAttempts int) ([]models.PointAward, error)
}

// Uploader writes attachments to object storage.
type Uploader interface {
	Upload(ctx context.Context, bucket blobstore.Bucket, displayName string, payload []byte) (*blobstore.Result, error)
	Remove(ctx context.Context, r *blobstore.Result) error
}

// IdentityResolver returns the identity behind a session token, or nil.
type IdentityResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.Identity, error)
}

// Attachment is a binary payload with its display file name.
type Attachment struct {
	Name string
	Data []byte
}

// Submission is everything a resident sends with one complaint.
type Submission struct {
	Category     models.Category `validate:"required,complaint_category"`
	Description  string          `validate:"required,max=5000"`
	LocationText string          `validate:"max=500"`
	Lat          *float64        `validate:"omitempty,latitude"`
	Lng          *float64        `validate:"omitempty,longitude"`
	Phone        string          `validate:"max=32"`
	IsAnonymous  bool
	Photo        *Attachment
	Voice        *Attachment

	// SessionToken identifies the submitter; empty means no session.
	SessionToken string
	// ClientKey scopes the in-flight guard, usually one per browser.
	ClientKey string
}

// Service handles the business logic for complaints.
type Service struct {
	store    Store
	uploader Uploader
	identity IdentityResolver
	guard    Guard
	events   EventSink
	logger   *zap.Logger
	validate *validator.Validate

	now  func() time.Time
	intn func(n int) int
}

// NewService creates a new complaint service. guard and events may be nil.
func NewService(store Store, uploader Uploader, identity IdentityResolver, guard Guard, events EventSink, logger *zap.Logger) *Service {
	if guard == nil {
		guard = NewLocalGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v := validator.New()
	_ = v.RegisterValidation("complaint_category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})

	return &Service{
		store:    store,
		uploader: uploader,
		identity: identity,
		guard:    guard,
		events:   events,
		logger:   logger,
		validate: v,
		now:      time.Now,
		intn:     rand.IntN,
	}
}

// Submit runs the submission workflow: validate, claim the in-flight slot,
// upload photo then voice memo, resolve the identity, derive the title and
// tracking code, insert once, then apply the point award and announce the
// new complaint. A failure before the insert deletes what was uploaded.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.Complaint, error) {
	sub.Description = strings.TrimSpace(sub.Description)
	sub.LocationText = strings.TrimSpace(sub.LocationText)
	sub.Phone = strings.TrimSpace(sub.Phone)
	if err := s.validateSubmission(sub); err != nil {
		return nil, err
	}

	key := sub.ClientKey
	if key == "" {
		key = defaultGuardKey
	}
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var uploaded []*blobstore.Result
	fail := func(err error) (*models.Complaint, error) {
		s.cleanup(ctx, uploaded)
		return nil, err
	}

	var photoURL, voiceURL *string
	if sub.Photo != nil {
		res, err := s.uploader.Upload(ctx, blobstore.BucketPhotos, sub.Photo.Name, sub.Photo.Data)
		if err != nil {
			return fail(fmt.Errorf("%w: photo: %w", ErrUpload, err))
		}
		uploaded = append(uploaded, res)
		photoURL = &res.URL
	}
	if sub.Voice != nil {
		name := sub.Voice.Name
		if name == "" {
			name = config.VoiceMemoName
		}
		res, err := s.uploader.Upload(ctx, blobstore.BucketAudio, name, sub.Voice.Data)
		if err != nil {
			return fail(fmt.Errorf("%w: voice memo: %w", ErrUpload, err))
		}
		uploaded = append(uploaded, res)
		voiceURL = &res.URL
	}

	identity, err := s.identity.CurrentUser(ctx, sub.SessionToken)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", ErrIdentity, err))
	}

	c := &models.Complaint{
		Title:        Title(sub.Category, sub.Description),
		Description:  sub.Description,
		Category:     sub.Category,
		LocationText: sub.LocationText,
		LocationLat:  sub.Lat,
		LocationLng:  sub.Lng,
		PhotoURL:     photoURL,
		VoiceMemoURL: voiceURL,
		IsAnonymous:  sub.IsAnonymous,
		Status:       models.StatusOpen,
	}
	if sub.IsAnonymous {
		if sub.Phone != "" {
			phone := sub.Phone
			c.Phone = &phone
		}
	} else if identity != nil {
		userID := identity.ID
		c.UserID = &userID
	}

	if err := s.insertWithCode(ctx, c); err != nil {
		return fail(err)
	}

	s.logger.Info("complaint submitted",
		zap.String("complaint_id", c.ComplaintID),
		zap.String("category", string(c.Category)),
		zap.Bool("anonymous", c.IsAnonymous))

	if c.UserID != nil {
		s.applyAward(ctx, c.ComplaintID)
	}
	s.publish(ctx, models.EventComplaintCreated, c)
	return c, nil
}

// insertWithCode picks a free tracking code and inserts the complaint,
// together with a pending point award for identified submitters. A unique
// index collision between the check and the insert regenerates the code.
func (s *Service) insertWithCode(ctx context.Context, c *models.Complaint) error {
	year := s.now().Year()
	for attempt := 0; attempt < config.TrackingCodeAttempts; attempt++ {
		code := TrackingCode(year, s.intn)

		exists, err := s.store.ComplaintCodeExists(ctx, code)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInsert, err)
		}
		if exists {
			continue
		}

		c.ComplaintID = code
		var award *models.PointAward
		if c.UserID != nil {
			award = &models.PointAward{
				UserID: *c.UserID,
				Amount: config.SubmissionPoints,
				Status: models.AwardPending,
			}
		}

		err = s.store.CreateComplaint(ctx, c, award)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.logger.Warn("tracking code collided on insert", zap.String("complaint_id", code))
			c.ComplaintID = ""
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInsert, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %w after %d attempts", ErrInsert, ErrCodesExhausted, config.TrackingCodeAttempts)
}

// applyAward credits the pending award. A failure leaves it pending for the
// scheduler and never fails the submission.
func (s *Service) applyAward(ctx context.Context, code string) bool {
	applied, err := s.store.ApplyPointAward(ctx, code)
	if err == nil {
		return applied
	}

	s.logger.Warn("point award failed, left pending",
		zap.String("complaint_id", code), zap.Error(err))
	if markErr := s.store.MarkAwardFailed(context.WithoutCancel(ctx), code, err.Error()); markErr != nil {
		s.logger.Error("failed to record award failure",
			zap.String("complaint_id", code), zap.Error(markErr))
	}
	return false
}

func (s *Service) cleanup(ctx context.Context, uploaded []*blobstore.Result) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range uploaded {
		if err := s.uploader.Remove(ctx, r); err != nil {
			s.logger.Warn("failed to delete orphaned attachment",
				zap.String("bucket", string(r.Bucket)),
				zap.String("path", r.Path),
				zap.Error(err))
		}
	}
}

func (s *Service) publish(ctx context.Context, kind string, c *models.Complaint) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, models.FeedEvent{Type: kind, Complaint: c}); err != nil {
		s.logger.Warn("failed to publish complaint event",
			zap.String("type", kind),
			zap.String("complaint_id", c.ComplaintID),
			zap.Error(err))
	}
}

func (s *Service) validateSubmission(sub Submission) error {
	if err := s.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if sub.Photo != nil {
		if err := blobstore.ValidatePhoto(sub.Photo.Data); err != nil {
			return fmt.Errorf("%w: photo: %w", ErrValidation, err)
		}
	}
	if sub.Voice != nil {
		if err := blobstore.ValidateVoice(sub.Voice.Data); err != nil {
			return fmt.Errorf("%w: voice memo: %w", ErrValidation, err)
		}
	}
	return nil
}

// Track looks a complaint up by its exact tracking code. An empty code is a
// validation error and issues no query; no match is ErrNotFound.
func (s *Service) Track(ctx context.Context, raw string) (*models.Complaint, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return nil, ErrEmptyTrackingCode
	}

	c, err := s.store.GetComplaintByCode(ctx, code)
	if err != nil {
		s.logger.Error("tracking lookup failed", zap.String("complaint_id", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}
