package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStore stores attachments in Google Cloud Storage. Each logical bucket
// maps to a real bucket name.
type GCSStore struct {
	client  *gcs.Client
	buckets map[Bucket]string
	baseURL string
}

// NewGCSStore creates the client with application default credentials.
func NewGCSStore(ctx context.Context, buckets map[string]string, publicBaseURL string) (*GCSStore, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}

	mapped := make(map[Bucket]string, len(buckets))
	for logical, name := range buckets {
		mapped[Bucket(logical)] = name
	}
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com"
	}
	return &GCSStore{
		client:  client,
		buckets: mapped,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *GCSStore) bucketName(b Bucket) (string, error) {
	name, ok := s.buckets[b]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownBucket, b)
	}
	return name, nil
}

// Put uploads with a does-not-exist precondition so nothing is overwritten.
func (s *GCSStore) Put(ctx context.Context, obj Object) error {
	name, err := s.bucketName(obj.Bucket)
	if err != nil {
		return err
	}

	handle := s.client.Bucket(name).Object(obj.Path).If(gcs.Conditions{DoesNotExist: true})
	err = writeObject(ctx, func(ctx context.Context) io.WriteCloser {
		w := handle.NewWriter(ctx)
		w.ContentType = obj.ContentType
		w.CacheControl = obj.CacheControl
		return w
	}, obj.Data)
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return ErrObjectExists
		}
		return err
	}
	return nil
}

// writeObject writes data through a writer bound to its own context. A
// failed write cancels that context, which aborts the upload instead of
// finalizing a partial object.
func writeObject(ctx context.Context, open func(context.Context) io.WriteCloser, data []byte) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := open(ctx)
	if _, err := w.Write(data); err != nil {
		cancel()
		return err
	}
	return w.Close()
}

func (s *GCSStore) Delete(ctx context.Context, bucket Bucket, objectPath string) error {
	name, err := s.bucketName(bucket)
	if err != nil {
		return err
	}
	err = s.client.Bucket(name).Object(objectPath).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	return err
}

func (s *GCSStore) PublicURL(bucket Bucket, objectPath string) string {
	name := s.buckets[bucket]
	return s.baseURL + "/" + name + "/" + (&url.URL{Path: objectPath}).EscapedPath()
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
