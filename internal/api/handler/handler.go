// Package handler is the HTTP surface of the service: gin routes, request
// binding, middleware and the mapping of domain errors to responses.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"wangsammo/backend/internal/auth"
	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/livefeed"
	"wangsammo/backend/internal/localization"
	"wangsammo/backend/internal/logging"
	"wangsammo/backend/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ComplaintService is the complaint workflow the handlers call.
type ComplaintService interface {
	Submit(ctx context.Context, sub complaint.Submission) (*models.Complaint, error)
	Track(ctx context.Context, raw string) (*models.Complaint, error)
	List(ctx context.Context, f complaint.Filter) ([]models.Complaint, error)
	Recent(ctx context.Context) ([]models.Complaint, error)
	MapMarkers(ctx context.Context) ([]models.Complaint, error)
	UpdateStatus(ctx context.Context, id string, u complaint.StatusUpdate) (*models.Complaint, error)
}

// IdentityService is the session API the handlers call.
type IdentityService interface {
	SignUp(ctx context.Context, email, password string, fields auth.ProfileFields) (*models.Identity, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*models.Identity, error)
}

// ProfileStore reads and writes user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, p *models.UserProfile) error
}

// Handler holds the services behind the HTTP routes.
type Handler struct {
	Complaints ComplaintService
	Auth       IdentityService
	Profiles   ProfileStore
	Hub        *livefeed.Hub
	Localizer  *localization.Localizer

	logger      *zap.Logger
	now         func() time.Time
	corsOrigins []string
}

func NewHandler(complaints ComplaintService, identity IdentityService, profiles ProfileStore, hub *livefeed.Hub, localizer *localization.Localizer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Complaints: complaints,
		Auth:       identity,
		Profiles:   profiles,
		Hub:        hub,
		Localizer:  localizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Router builds the gin engine with every route. An empty origin list
// allows any origin.
func (h *Handler) Router(corsOrigins []string) *gin.Engine {
	h.corsOrigins = corsOrigins

	r := gin.New()
	r.Use(gin.Recovery(), logging.GinMiddleware(h.logger))
	r.MaxMultipartMemory = 16 << 20

	corsCfg := cors.DefaultConfig()
	if len(corsOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = corsOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "Accept-Language", ClientKeyHeader)
	r.Use(cors.New(corsCfg))

	api := r.Group("/api", h.withLanguage)

	complaints := api.Group("/complaints")
	complaints.POST("", h.SubmitComplaint)
	complaints.GET("/track/:code", h.TrackComplaint)
	complaints.GET("/recent", h.RecentComplaints)
	complaints.GET("/map", h.MapMarkers)

	stats := api.Group("/stats")
	stats.GET("/public", h.PublicStats)
	stats.GET("/home", h.withIdentity, h.HomeStats)

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", h.SignUp)
	authGroup.POST("/signin", h.SignIn)
	authGroup.POST("/signout", h.SignOut)

	profile := api.Group("/profile", h.withIdentity, h.requireUser)
	profile.GET("", h.GetProfile)
	profile.PUT("", h.UpdateProfile)

	dashboard := api.Group("/dashboard", h.withIdentity, h.requireUser, h.requireOfficial)
	dashboard.GET("/complaints", h.DashboardComplaints)
	dashboard.PATCH("/complaints/:id", h.UpdateComplaintStatus)
	dashboard.GET("/analytics", h.Analytics)
	dashboard.GET("/feed", h.ServeFeed)

	return r
}

// fail writes the localized error response for err. fallbackKey names the
// message used for unclassified failures.
func (h *Handler) fail(c *gin.Context, err error, fallbackKey string) {
	status, key := classify(err)
	if key == "" {
		key = fallbackKey
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": h.Localizer.GetString(language(c), key)})
}

func (h *Handler) abort(c *gin.Context, status int, key string) {
	c.AbortWithStatusJSON(status, gin.H{"error": h.Localizer.GetString(language(c), key)})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, complaint.ErrEmptyTrackingCode):
		return http.StatusBadRequest, "error.emptyCode"
	case errors.Is(err, blobstore.ErrTooLarge):
		return http.StatusBadRequest, "error.fileTooLarge"
	case errors.Is(err, blobstore.ErrInvalidType):
		return http.StatusBadRequest, "error.invalidFileType"
	case errors.Is(err, complaint.ErrValidation):
		return http.StatusBadRequest, "error.validation"
	case errors.Is(err, complaint.ErrNotFound):
		return http.StatusNotFound, "error.notFound"
	case errors.Is(err, complaint.ErrSubmissionInFlight):
		return http.StatusConflict, "error.inFlight"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "error.invalidCredentials"
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, "error.unauthorized"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "error.emailTaken"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "error.weakPassword"
	case errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest, "error.invalidEmail"
	case errors.Is(err, complaint.ErrQuery):
		return http.StatusInternalServerError, "error.queryFailed"
	}
	return http.StatusInternalServerError, ""
}
