// Package blobstore uploads complaint attachments to object storage and
// resolves their public URLs.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path"
	"strings"
	"time"

	"wangsammo/backend/internal/config"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Bucket is one of the fixed attachment buckets.
type Bucket string

const (
	BucketPhotos    Bucket = "photos"
	BucketAudio     Bucket = "audio"
	BucketDocuments Bucket = "documents"
)

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	switch b {
	case BucketPhotos, BucketAudio, BucketDocuments:
		return true
	}
	return false
}

var (
	// ErrObjectExists is returned by a Store when the path is already taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrObjectNotFound is returned by a Store when deleting a missing object.
	ErrObjectNotFound = errors.New("object not found")
	ErrUnknownBucket  = errors.New("unknown bucket")
	ErrInvalidType    = errors.New("invalid file type")
	ErrTooLarge       = errors.New("file too large")
)

// Object is a single blob write.
type Object struct {
	Bucket       Bucket
	Path         string
	ContentType  string
	CacheControl string
	Data         []byte
}

// Store is the object storage collaborator. Put never overwrites: an existing
// path yields ErrObjectExists.
type Store interface {
	Put(ctx context.Context, obj Object) error
	Delete(ctx context.Context, bucket Bucket, objectPath string) error
	PublicURL(bucket Bucket, objectPath string) string
}

// Result describes a stored attachment.
type Result struct {
	Bucket Bucket `json:"bucket"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

// Uploader builds storage paths and writes attachments through a Store.
type Uploader struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
	suffix func(n int) string
}

// NewUploader creates an uploader over the given store.
func NewUploader(store Store, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		store:  store,
		logger: logger,
		now:    time.Now,
		suffix: randomBase36,
	}
}

// Upload writes payload once to bucket under a fresh path derived from the
// display name's extension. There is no retry; any store error is returned.
func (u *Uploader) Upload(ctx context.Context, bucket Bucket, displayName string, payload []byte) (*Result, error) {
	if !bucket.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBucket, bucket)
	}

	objectPath := u.ObjectPath(displayName)
	err := u.store.Put(ctx, Object{
		Bucket:       bucket,
		Path:         objectPath,
		ContentType:  mimetype.Detect(payload).String(),
		CacheControl: fmt.Sprintf("public, max-age=%d", config.UploadCacheAge),
		Data:         payload,
	})
	if err != nil {
		u.logger.Error("attachment upload failed",
			zap.String("bucket", string(bucket)),
			zap.String("path", objectPath),
			zap.Error(err))
		return nil, fmt.Errorf("upload %s/%s: %w", bucket, objectPath, err)
	}

	return &Result{
		Bucket: bucket,
		Path:   objectPath,
		URL:    u.store.PublicURL(bucket, objectPath),
	}, nil
}

// Remove deletes a previously uploaded attachment.
func (u *Uploader) Remove(ctx context.Context, r *Result) error {
	if r == nil {
		return nil
	}
	return u.store.Delete(ctx, r.Bucket, r.Path)
}

// PublicURL resolves the public URL of an object.
func (u *Uploader) PublicURL(bucket Bucket, objectPath string) string {
	return u.store.PublicURL(bucket, objectPath)
}

// ObjectPath returns complaints/<unix millis>-<random>.<ext>.
func (u *Uploader) ObjectPath(displayName string) string {
	name := fmt.Sprintf("%d-%s.%s",
		u.now().UnixMilli(),
		u.suffix(config.UploadRandLength),
		Extension(displayName))
	return path.Join(config.UploadPrefix, name)
}

// Extension returns the text after the last dot of name, or "bin".
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return "bin"
	}
	return name[i+1:]
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}

// ValidateType sniffs the payload and checks its MIME type against the
// allowed prefixes (e.g. "image/").
func ValidateType(payload []byte, prefixes ...string) error {
	detected := mimetype.Detect(payload)
	for _, p := range prefixes {
		for m := detected; m != nil; m = m.Parent() {
			if strings.HasPrefix(m.String(), p) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidType, detected.String())
}

// ValidateSize checks that size does not exceed maxMB megabytes.
func ValidateSize(size int, maxMB int) error {
	if size > maxMB*1024*1024 {
		return fmt.Errorf("%w: %d bytes exceeds %d MB", ErrTooLarge, size, maxMB)
	}
	return nil
}

// ValidatePhoto applies the photo limits.
func ValidatePhoto(payload []byte) error {
	if err := ValidateSize(len(payload), config.MaxPhotoSizeMB); err != nil {
		return err
	}
	return ValidateType(payload, "image/")
}

// ValidateVoice applies the voice memo limits. Browsers record audio-only
// webm which sniffs as video/webm.
func ValidateVoice(payload []byte) error {
	if err := ValidateSize(len(payload), config.MaxVoiceSizeMB); err != nil {
		return err
	}
	return ValidateType(payload, "audio/", "video/webm")
}
