package complaint

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	wavData = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 24)...)
	now     = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	store    *MockStore
	uploader *MockUploader
	identity *MockIdentity
	sink     *recordingSink
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{
		store:    new(MockStore),
		uploader: new(MockUploader),
		identity: new(MockIdentity),
		sink:     &recordingSink{},
	}
	f.svc = NewService(f.store, f.uploader, f.identity, NewLocalGuard(), f.sink, nil)
	f.svc.now = func() time.Time { return now }
	f.svc.intn = func(n int) int { return 0 }
	return f
}

func TestSubmit_RoadTitleFromLongDescription(t *testing.T) {
	// Arrange
	f := newFixture()
	f.identity.On("CurrentUser", "").Return(nil, nil)
	f.store.On("ComplaintCodeExists", "WS-2025-AAA").Return(false, nil)
	f.store.On("CreateComplaint", mock.AnythingOfType("*models.Complaint"), (*models.PointAward)(nil)).Return(nil)

	// Act
	c, err := f.svc.Submit(context.Background(), Submission{
		Category:    models.CategoryRoad,
		Description: strings.Repeat("A", 60),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ปัญหาถนน: "+strings.Repeat("A", 50)+"...", c.Title)
	assert.Equal(t, "WS-2025-AAA", c.ComplaintID)
	assert.Equal(t, models.StatusOpen, c.Status)
	assert.Nil(t, c.UserID)
	f.store.AssertNotCalled(t, "ApplyPointAward", mock.Anything)
	f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, models.EventComplaintCreated, f.sink.events[0].Type)
}

func TestSubmit_AnonymousKeepsPhoneAndDropsUser(t *testing.T) {
	f := newFixture()
	f.identity.On("CurrentUser", "token-1").Return(&models.Identity{ID: "user-1", Role: models.RoleResident}, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(false, nil)
	f.store.On("CreateComplaint", mock.Anything, (*models.PointAward)(nil)).Return(nil)

	c, err := f.svc.Submit(context.Background(), Submission{
		Category:     models.CategoryWater,
		Description:  "ท่อแตก",
		Phone:        " 0812345678 ",
		IsAnonymous:  true,
		SessionToken: "token-1",
	})

	require.NoError(t, err)
	assert.Nil(t, c.UserID, "anonymous complaints never carry a user")
	require.NotNil(t, c.Phone)
	assert.Equal(t, "0812345678", *c.Phone)
	assert.True(t, c.IsAnonymous)
	f.store.AssertNotCalled(t, "ApplyPointAward", mock.Anything)
}

func TestSubmit_IdentifiedRecordsAndAppliesAward(t *testing.T) {
	f := newFixture()
	f.identity.On("CurrentUser", "token-1").Return(&models.Identity{ID: "user-1", Role: models.RoleResident}, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(false, nil)
	f.store.On("CreateComplaint", mock.Anything, mock.MatchedBy(func(a *models.PointAward) bool {
		return a != nil && a.UserID == "user-1" && a.Amount == config.SubmissionPoints && a.Status == models.AwardPending
	})).Return(nil)
	f.store.On("ApplyPointAward", "WS-2025-AAA").Return(true, nil)

	c, err := f.svc.Submit(context.Background(), Submission{
		Category:     models.CategoryElectricity,
		Description:  "ไฟดับทั้งซอย",
		Phone:        "0812345678",
		SessionToken: "token-1",
	})

	require.NoError(t, err)
	require.NotNil(t, c.UserID)
	assert.Equal(t, "user-1", *c.UserID)
	assert.Nil(t, c.Phone, "phone is not stored for identified complaints")
	f.store.AssertExpectations(t)
}

func TestSubmit_AwardFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture()
	f.identity.On("CurrentUser", "token-1").Return(&models.Identity{ID: "user-1"}, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(false, nil)
	f.store.On("CreateComplaint", mock.Anything, mock.Anything).Return(nil)
	f.store.On("ApplyPointAward", "WS-2025-AAA").Return(false, errors.New("deadlock"))
	f.store.On("MarkAwardFailed", "WS-2025-AAA", "deadlock").Return(nil)

	c, err := f.svc.Submit(context.Background(), Submission{
		Category:     models.CategoryOther,
		Description:  "อื่นๆ",
		SessionToken: "token-1",
	})

	require.NoError(t, err)
	assert.NotNil(t, c)
	f.store.AssertCalled(t, "MarkAwardFailed", "WS-2025-AAA", "deadlock")
}

func TestSubmit_UploadsPhotoThenVoice(t *testing.T) {
	f := newFixture()
	var order []blobstore.Bucket
	record := func(args mock.Arguments) { order = append(order, args.Get(0).(blobstore.Bucket)) }

	f.uploader.On("Upload", blobstore.BucketPhotos, "street.png").Run(record).
		Return(&blobstore.Result{Bucket: blobstore.BucketPhotos, Path: "complaints/1-a.png", URL: "https://cdn/photo"}, nil)
	f.uploader.On("Upload", blobstore.BucketAudio, config.VoiceMemoName).Run(record).
		Return(&blobstore.Result{Bucket: blobstore.BucketAudio, Path: "complaints/1-b.wav", URL: "https://cdn/voice"}, nil)
	f.identity.On("CurrentUser", "").Return(nil, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(false, nil)
	f.store.On("CreateComplaint", mock.Anything, mock.Anything).Return(nil)

	c, err := f.svc.Submit(context.Background(), Submission{
		Category:    models.CategoryRoad,
		Description: "หลุมบ่อ",
		Photo:       &Attachment{Name: "street.png", Data: pngData},
		Voice:       &Attachment{Data: wavData},
	})

	require.NoError(t, err)
	assert.Equal(t, []blobstore.Bucket{blobstore.BucketPhotos, blobstore.BucketAudio}, order)
	assert.Equal(t, "https://cdn/photo", *c.PhotoURL)
	assert.Equal(t, "https://cdn/voice", *c.VoiceMemoURL)
	f.uploader.AssertNotCalled(t, "Remove", mock.Anything)
}

func TestSubmit_VoiceFailureInsertsNothingAndRemovesPhoto(t *testing.T) {
	f := newFixture()
	photo := &blobstore.Result{Bucket: blobstore.BucketPhotos, Path: "complaints/1-a.png", URL: "https://cdn/photo"}
	f.uploader.On("Upload", blobstore.BucketPhotos, mock.Anything).Return(photo, nil)
	f.uploader.On("Upload", blobstore.BucketAudio, mock.Anything).Return(nil, errors.New("permission denied"))
	f.uploader.On("Remove", photo).Return(nil)

	_, err := f.svc.Submit(context.Background(), Submission{
		Category:    models.CategoryRoad,
		Description: "หลุมบ่อ",
		Photo:       &Attachment{Name: "a.png", Data: pngData},
		Voice:       &Attachment{Name: "v.wav", Data: wavData},
	})

	assert.ErrorIs(t, err, ErrUpload)
	f.store.AssertNotCalled(t, "CreateComplaint", mock.Anything, mock.Anything)
	f.identity.AssertNotCalled(t, "CurrentUser", mock.Anything)
	f.uploader.AssertCalled(t, "Remove", photo)
	assert.Empty(t, f.sink.events)
}

func TestSubmit_InsertFailureRemovesUploads(t *testing.T) {
	store := blobstore.NewMemoryStore("")
	f := newFixture()
	f.svc.uploader = blobstore.NewUploader(store, nil)
	f.identity.On("CurrentUser", "").Return(nil, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(false, nil)
	f.store.On("CreateComplaint", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := f.svc.Submit(context.Background(), Submission{
		Category:    models.CategoryWaste,
		Description: "ขยะไม่ถูกเก็บ",
		Photo:       &Attachment{Name: "a.png", Data: pngData},
	})

	assert.ErrorIs(t, err, ErrInsert)
	assert.Equal(t, 0, store.Len(), "uploaded photo is deleted after a failed insert")
}

func TestSubmit_Validation(t *testing.T) {
	lat := 123.0
	tests := []struct {
		name string
		sub  Submission
	}{
		{"missing description", Submission{Category: models.CategoryRoad, Description: "   "}},
		{"missing category", Submission{Description: "x"}},
		{"unknown category", Submission{Category: "bridge", Description: "x"}},
		{"bad latitude", Submission{Category: models.CategoryRoad, Description: "x", Lat: &lat}},
		{"photo is not an image", Submission{Category: models.CategoryRoad, Description: "x", Photo: &Attachment{Name: "a.txt", Data: []byte("hello")}}},
		{"voice is not audio", Submission{Category: models.CategoryRoad, Description: "x", Voice: &Attachment{Data: pngData}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.Submit(context.Background(), tt.sub)

			assert.ErrorIs(t, err, ErrValidation)
			f.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
			f.store.AssertNotCalled(t, "CreateComplaint", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmit_IdentityFailureAborts(t *testing.T) {
	f := newFixture()
	f.identity.On("CurrentUser", "t").Return(nil, errors.New("redis down"))

	_, err := f.svc.Submit(context.Background(), Submission{Category: models.CategoryRoad, Description: "x", SessionToken: "t"})

	assert.ErrorIs(t, err, ErrIdentity)
	f.store.AssertNotCalled(t, "CreateComplaint", mock.Anything, mock.Anything)
}

func TestSubmit_RegeneratesTakenCodes(t *testing.T) {
	f := newFixture()
	seq := 0
	f.svc.intn = func(n int) int {
		seq++
		return (seq - 1) / 3 % n // AAA, then BBB, then CCC
	}
	f.identity.On("CurrentUser", "").Return(nil, nil)
	f.store.On("ComplaintCodeExists", "WS-2025-AAA").Return(true, nil)
	f.store.On("ComplaintCodeExists", "WS-2025-BBB").Return(false, nil)
	f.store.On("ComplaintCodeExists", "WS-2025-CCC").Return(false, nil)
	f.store.On("CreateComplaint", mock.MatchedBy(func(c *models.Complaint) bool { return c.ComplaintID == "WS-2025-BBB" }), mock.Anything).
		Return(gorm.ErrDuplicatedKey)
	f.store.On("CreateComplaint", mock.MatchedBy(func(c *models.Complaint) bool { return c.ComplaintID == "WS-2025-CCC" }), mock.Anything).
		Return(nil)

	c, err := f.svc.Submit(context.Background(), Submission{Category: models.CategoryRoad, Description: "x"})

	require.NoError(t, err)
	assert.Equal(t, "WS-2025-CCC", c.ComplaintID)
}

func TestSubmit_CodesExhausted(t *testing.T) {
	f := newFixture()
	f.identity.On("CurrentUser", "").Return(nil, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(true, nil)

	_, err := f.svc.Submit(context.Background(), Submission{Category: models.CategoryRoad, Description: "x"})

	assert.ErrorIs(t, err, ErrInsert)
	assert.ErrorIs(t, err, ErrCodesExhausted)
	f.store.AssertNumberOfCalls(t, "ComplaintCodeExists", config.TrackingCodeAttempts)
}

func TestSubmit_ConcurrentSubmitIsRejected(t *testing.T) {
	f := newFixture()
	started := make(chan struct{})
	unblock := make(chan struct{})

	f.uploader.On("Upload", blobstore.BucketPhotos, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-unblock
		}).
		Return(&blobstore.Result{Bucket: blobstore.BucketPhotos, Path: "p", URL: "u"}, nil).Once()
	f.identity.On("CurrentUser", "").Return(nil, nil)
	f.store.On("ComplaintCodeExists", mock.Anything).Return(false, nil)
	f.store.On("CreateComplaint", mock.Anything, mock.Anything).Return(nil)

	sub := Submission{
		Category:    models.CategoryRoad,
		Description: "x",
		Photo:       &Attachment{Name: "a.png", Data: pngData},
		ClientKey:   "browser-1",
	}

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = f.svc.Submit(context.Background(), sub)
	}()
	<-started

	_, err := f.svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	// A different client is not blocked by browser-1.
	other := Submission{Category: models.CategoryRoad, Description: "y", ClientKey: "browser-2"}
	_, err = f.svc.Submit(context.Background(), other)
	assert.NoError(t, err)

	close(unblock)
	wg.Wait()
	assert.NoError(t, firstErr)

	// The slot is free again once the first submission finished.
	_, err = f.svc.Submit(context.Background(), Submission{Category: models.CategoryRoad, Description: "z", ClientKey: "browser-1"})
	assert.NoError(t, err)
}

func TestTrack(t *testing.T) {
	t.Run("empty code issues no query", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.Track(context.Background(), "   ")

		assert.ErrorIs(t, err, ErrEmptyTrackingCode)
		assert.ErrorIs(t, err, ErrValidation)
		f.store.AssertNotCalled(t, "GetComplaintByCode", mock.Anything)
	})

	t.Run("found", func(t *testing.T) {
		f := newFixture()
		want := &models.Complaint{ComplaintID: "WS-2025-AB1", Status: models.StatusInProgress}
		f.store.On("GetComplaintByCode", "WS-2025-AB1").Return(want, nil)

		got, err := f.svc.Track(context.Background(), " WS-2025-AB1 ")

		require.NoError(t, err)
		assert.Same(t, want, got)
	})

	t.Run("not found is distinct from failure", func(t *testing.T) {
		f := newFixture()
		f.store.On("GetComplaintByCode", "WS-2025-ZZZ").Return(nil, nil)
		f.store.On("GetComplaintByCode", "WS-2025-ERR").Return(nil, errors.New("timeout"))

		_, err := f.svc.Track(context.Background(), "WS-2025-ZZZ")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NotErrorIs(t, err, ErrQuery)

		_, err = f.svc.Track(context.Background(), "WS-2025-ERR")
		assert.ErrorIs(t, err, ErrQuery)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	priority := 4
	updated := &models.Complaint{ID: "id-1", ComplaintID: "WS-2025-AB1", Status: models.StatusResolved}
	f.store.On("UpdateComplaintStatus", "id-1", mock.MatchedBy(func(u storage.ComplaintUpdate) bool {
		return u.Status == models.StatusResolved &&
			u.AdminResponse != nil && *u.AdminResponse == "ซ่อมแล้ว" &&
			u.Priority != nil && *u.Priority == 4 &&
			u.UpdatedAt.Equal(now)
	})).Return(updated, nil)

	c, err := f.svc.UpdateStatus(context.Background(), "id-1", StatusUpdate{
		Status:        models.StatusResolved,
		AdminResponse: "  ซ่อมแล้ว ",
		Priority:      &priority,
	})

	require.NoError(t, err)
	assert.Same(t, updated, c)
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, models.EventComplaintUpdated, f.sink.events[0].Type)
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newFixture()
	f.store.On("UpdateComplaintStatus", "missing", mock.MatchedBy(func(u storage.ComplaintUpdate) bool {
		return u.AdminResponse == nil
	})).Return(nil, storage.ErrNotFound)

	_, err := f.svc.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: models.StatusClosed, AdminResponse: " "})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.UpdateStatus(context.Background(), "id", StatusUpdate{Status: "deleted"})
	assert.ErrorIs(t, err, ErrValidation)

	bad := 7
	_, err = f.svc.UpdateStatus(context.Background(), "id", StatusUpdate{Status: models.StatusOpen, Priority: &bad})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.sink.events)
}

func TestListAndPublicProjections(t *testing.T) {
	f := newFixture()
	rows := []models.Complaint{{ComplaintID: "WS-2025-AB1"}}
	f.store.On("ListComplaints", storage.ComplaintFilter{Status: models.StatusOpen, Limit: 10}).Return(rows, nil)
	f.store.On("ListComplaints", storage.ComplaintFilter{Limit: config.RecentComplaintsLimit, Columns: publicColumns}).Return(rows, nil)
	f.store.On("ListComplaints", storage.ComplaintFilter{WithLocation: true, Columns: publicColumns}).Return(nil, errors.New("boom"))

	got, err := f.svc.List(context.Background(), Filter{Status: models.StatusOpen, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	got, err = f.svc.Recent(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.svc.MapMarkers(context.Background())
	assert.ErrorIs(t, err, ErrQuery)

	_, err = f.svc.List(context.Background(), Filter{Category: "bridge"})
	assert.ErrorIs(t, err, ErrValidation)

	assert.NotContains(t, publicColumns, "phone")
	assert.NotContains(t, publicColumns, "user_id")
}

func TestAwardPending(t *testing.T) {
	f := newFixture()
	f.store.On("ListPendingAwards", config.AwardRetryBatchSize, config.AwardRetryLimit).Return([]models.PointAward{
		{ComplaintCode: "WS-2025-AAA"},
		{ComplaintCode: "WS-2025-BBB"},
		{ComplaintCode: "WS-2025-CCC"},
	}, nil)
	f.store.On("ApplyPointAward", "WS-2025-AAA").Return(true, nil)
	f.store.On("ApplyPointAward", "WS-2025-BBB").Return(false, nil)
	f.store.On("ApplyPointAward", "WS-2025-CCC").Return(false, errors.New("lock timeout"))
	f.store.On("MarkAwardFailed", "WS-2025-CCC", "lock timeout").Return(nil)

	applied, err := f.svc.AwardPending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	f.store.AssertExpectations(t)
}
