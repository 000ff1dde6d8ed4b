package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type submitForm struct {
	Category     string `form:"category"`
	Description  string `form:"description"`
	LocationText string `form:"location_text"`
	Lat          string `form:"location_lat"`
	Lng          string `form:"location_lng"`
	Phone        string `form:"phone"`
	IsAnonymous  bool   `form:"is_anonymous"`
}

// SubmitComplaint accepts a multipart form with optional "photo" and
// "voice_memo" files.
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var form submitForm
	if err := c.ShouldBind(&form); err != nil {
		h.abort(c, http.StatusBadRequest, "error.badRequest")
		return
	}

	sub := complaint.Submission{
		Category:     models.Category(strings.TrimSpace(form.Category)),
		Description:  form.Description,
		LocationText: form.LocationText,
		Phone:        form.Phone,
		IsAnonymous:  form.IsAnonymous,
		SessionToken: bearerToken(c),
		ClientKey:    clientKey(c),
	}

	var err error
	if sub.Lat, err = optionalFloat(form.Lat); err != nil {
		h.fail(c, err, "error.validation")
		return
	}
	if sub.Lng, err = optionalFloat(form.Lng); err != nil {
		h.fail(c, err, "error.validation")
		return
	}
	if sub.Photo, err = formAttachment(c, "photo", config.MaxPhotoSizeMB); err != nil {
		h.fail(c, err, "error.badRequest")
		return
	}
	if sub.Voice, err = formAttachment(c, "voice_memo", config.MaxVoiceSizeMB); err != nil {
		h.fail(c, err, "error.badRequest")
		return
	}

	created, err := h.Complaints.Submit(c.Request.Context(), sub)
	if err != nil {
		h.fail(c, err, "error.submitFailed")
		return
	}

	lang := language(c)
	resp := gin.H{
		"complaint": created,
		"message":   h.Localizer.GetString(lang, "message.complaintSubmitted"),
	}
	if created.UserID != nil {
		resp["points_earned"] = config.SubmissionPoints
		resp["points_message"] = h.Localizer.Format(lang, "message.pointsEarned",
			map[string]any{"points": config.SubmissionPoints})
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) TrackComplaint(c *gin.Context) {
	found, err := h.Complaints.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}

	lang := language(c)
	messageKey := "status_message." + string(found.Status)
	if !found.Status.Valid() {
		messageKey = "status_message.unknown"
	}
	resp := gin.H{
		"complaint":      found.Public(),
		"status_label":   h.Localizer.GetString(lang, "status."+string(found.Status)),
		"status_message": h.Localizer.GetString(lang, messageKey),
	}
	if found.Priority != nil && *found.Priority > 1 {
		resp["priority_label"] = h.Localizer.GetString(lang, fmt.Sprintf("priority.%d", *found.Priority))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RecentComplaints(c *gin.Context) {
	rows, err := h.Complaints.Recent(c.Request.Context())
	if err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": rows})
}

func (h *Handler) MapMarkers(c *gin.Context) {
	rows, err := h.Complaints.MapMarkers(c.Request.Context())
	if err != nil {
		h.fail(c, err, "error.queryFailed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": rows})
}

func optionalFloat(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: coordinate %q", complaint.ErrValidation, raw)
	}
	return &v, nil
}

// formAttachment reads an optional file field. The declared size is checked
// before the body is read.
func formAttachment(c *gin.Context, field string, maxMB int) (*complaint.Attachment, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := blobstore.ValidateSize(int(fh.Size), maxMB); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", complaint.ErrValidation, field, err)
	}
	data, err := readFile(fh)
	if err != nil {
		return nil, err
	}
	return &complaint.Attachment{Name: fh.Filename, Data: data}, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
