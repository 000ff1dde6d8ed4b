package complaint

import (
	"context"
	"time"

	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ComplaintCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(code)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) CreateComplaint(ctx context.Context, c *models.Complaint, award *models.PointAward) error {
	args := m.Called(c, award)
	return args.Error(0)
}

func (m *MockStore) GetComplaintByCode(ctx context.Context, code string) (*models.Complaint, error) {
	args := m.Called(code)
	c, _ := args.Get(0).(*models.Complaint)
	return c, args.Error(1)
}

func (m *MockStore) ListComplaints(ctx context.Context, f storage.ComplaintFilter) ([]models.Complaint, error) {
	args := m.Called(f)
	rows, _ := args.Get(0).([]models.Complaint)
	return rows, args.Error(1)
}

func (m *MockStore) UpdateComplaintStatus(ctx context.Context, id string, u storage.ComplaintUpdate) (*models.Complaint, error) {
	args := m.Called(id, u)
	c, _ := args.Get(0).(*models.Complaint)
	return c, args.Error(1)
}

func (m *MockStore) ApplyPointAward(ctx context.Context, complaintCode string) (bool, error) {
	args := m.Called(complaintCode)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) MarkAwardFailed(ctx context.Context, complaintCode, reason string) error {
	args := m.Called(complaintCode, reason)
	return args.Error(0)
}

func (m *MockStore) ListPendingAwards(ctx context.Context, limit, maxAttempts int) ([]models.PointAward, error) {
	args := m.Called(limit, maxAttempts)
	awards, _ := args.Get(0).([]models.PointAward)
	return awards, args.Error(1)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, bucket blobstore.Bucket, displayName string, payload []byte) (*blobstore.Result, error) {
	args := m.Called(bucket, displayName)
	r, _ := args.Get(0).(*blobstore.Result)
	return r, args.Error(1)
}

func (m *MockUploader) Remove(ctx context.Context, r *blobstore.Result) error {
	args := m.Called(r)
	return args.Error(0)
}

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) CurrentUser(ctx context.Context, token string) (*models.Identity, error) {
	args := m.Called(token)
	id, _ := args.Get(0).(*models.Identity)
	return id, args.Error(1)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireSubmitLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	args := m.Called(key, token, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) ReleaseSubmitLock(ctx context.Context, key, token string) (bool, error) {
	args := m.Called(key, token)
	return args.Bool(0), args.Error(1)
}

type recordingSink struct {
	events []models.FeedEvent
	err    error
}

func (r *recordingSink) Publish(ctx context.Context, ev models.FeedEvent) error {
	r.events = append(r.events, ev)
	return r.err
}
