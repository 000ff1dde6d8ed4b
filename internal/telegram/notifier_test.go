package telegram_test

import (
	"context"
	"errors"
	"testing"

	"wangsammo/backend/internal/models"
	"wangsammo/backend/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NewComplaint(t *testing.T) {
	sender := &fakeSender{}
	n := telegram.NewNotifier(sender, -100123, newLocalizer(t))

	err := n.Publish(context.Background(), models.FeedEvent{
		Type: models.EventComplaintCreated,
		Complaint: &models.Complaint{
			ComplaintID:  "WS-2025-NEW",
			Title:        "ปัญหาถนน: หลุมบ่อ",
			LocationText: "ซอย 5",
		},
	})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "WS-2025-NEW")
	assert.Contains(t, sender.sent[0].Text, "ซอย 5")
}

func TestNotifier_StatusChanged(t *testing.T) {
	sender := &fakeSender{}
	l := newLocalizer(t)
	n := telegram.NewNotifier(sender, 5, l)

	err := n.Publish(context.Background(), models.FeedEvent{
		Type:      models.EventComplaintUpdated,
		Complaint: &models.Complaint{ComplaintID: "WS-2025-UPD", Status: models.StatusResolved},
	})

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, l.GetString("th", "status.resolved"))
}

func TestNotifier_SkipsWithoutChatOrComplaint(t *testing.T) {
	sender := &fakeSender{}
	l := newLocalizer(t)

	require.NoError(t, telegram.NewNotifier(sender, 0, l).Publish(context.Background(),
		models.FeedEvent{Type: models.EventComplaintCreated, Complaint: &models.Complaint{}}))
	require.NoError(t, telegram.NewNotifier(sender, 5, l).Publish(context.Background(),
		models.FeedEvent{Type: models.EventComplaintCreated}))
	require.NoError(t, telegram.NewNotifier(sender, 5, l).Publish(context.Background(),
		models.FeedEvent{Type: "complaint_voted", Complaint: &models.Complaint{}}))

	assert.Empty(t, sender.sent)
}

func TestNotifier_SendError(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	n := telegram.NewNotifier(sender, 5, newLocalizer(t))

	err := n.Publish(context.Background(), models.FeedEvent{
		Type:      models.EventComplaintCreated,
		Complaint: &models.Complaint{ComplaintID: "WS-2025-ERR"},
	})

	assert.EqualError(t, err, "telegram down")
}
