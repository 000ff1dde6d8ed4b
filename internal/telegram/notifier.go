package telegram

import (
	"context"

	"wangsammo/backend/internal/localization"
	"wangsammo/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier posts complaint events to the officials' chat. It is a
// complaint event sink.
type Notifier struct {
	sender    Sender
	chatID    int64
	localizer *localization.Localizer
	lang      string
}

func NewNotifier(sender Sender, chatID int64, localizer *localization.Localizer) *Notifier {
	return &Notifier{
		sender:    sender,
		chatID:    chatID,
		localizer: localizer,
		lang:      localization.DefaultLanguage,
	}
}

func (n *Notifier) Publish(ctx context.Context, ev models.FeedEvent) error {
	if ev.Complaint == nil || n.chatID == 0 {
		return nil
	}
	c := ev.Complaint

	var text string
	switch ev.Type {
	case models.EventComplaintCreated:
		location := c.LocationText
		if location == "" {
			location = "-"
		}
		text = n.localizer.Format(n.lang, "telegram.newComplaint", map[string]any{
			"code":     c.ComplaintID,
			"title":    c.Title,
			"location": location,
		})
	case models.EventComplaintUpdated:
		text = n.localizer.Format(n.lang, "telegram.statusChanged", map[string]any{
			"code":   c.ComplaintID,
			"status": n.localizer.GetString(n.lang, "status."+string(c.Status)),
		})
	default:
		return nil
	}

	_, err := n.sender.Send(tgbotapi.NewMessage(n.chatID, text))
	return err
}
