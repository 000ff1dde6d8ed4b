package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wangsammo/backend/internal/analysis"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/localization"
	"wangsammo/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the Bot API the package sends through.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ComplaintReader is what the bot commands read complaints through.
type ComplaintReader interface {
	Track(ctx context.Context, raw string) (*models.Complaint, error)
	List(ctx context.Context, f complaint.Filter) ([]models.Complaint, error)
}

// CommandHandler answers /start, /track and /stats.
type CommandHandler struct {
	complaints ComplaintReader
	localizer  *localization.Localizer
	sender     Sender
	logger     *zap.Logger
	now        func() time.Time
}

func NewCommandHandler(complaints ComplaintReader, localizer *localization.Localizer, sender Sender, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		complaints: complaints,
		localizer:  localizer,
		sender:     sender,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleUpdate replies to a command message. Non-command updates are ignored.
func (h *CommandHandler) HandleUpdate(ctx context.Context, update *tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	lang := localization.DefaultLanguage
	if msg.From != nil {
		lang = h.localizer.Resolve("", msg.From.LanguageCode)
	}

	reply := h.Reply(ctx, lang, msg.Command(), msg.CommandArguments())
	if _, err := h.sender.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		h.logger.Warn("failed to send telegram reply",
			zap.Int64("chat_id", msg.Chat.ID), zap.String("command", msg.Command()), zap.Error(err))
	}
}

// Reply builds the answer text for a command.
func (h *CommandHandler) Reply(ctx context.Context, lang, command, args string) string {
	switch command {
	case "start", "help":
		return h.localizer.GetString(lang, "telegram.start")
	case "track":
		return h.track(ctx, lang, args)
	case "stats":
		return h.stats(ctx, lang)
	default:
		return h.localizer.GetString(lang, "telegram.unknownCommand")
	}
}

func (h *CommandHandler) track(ctx context.Context, lang, args string) string {
	c, err := h.complaints.Track(ctx, args)
	switch {
	case errors.Is(err, complaint.ErrEmptyTrackingCode):
		return h.localizer.GetString(lang, "telegram.trackUsage")
	case errors.Is(err, complaint.ErrNotFound):
		return h.localizer.GetString(lang, "error.notFound")
	case err != nil:
		h.logger.Error("telegram track failed", zap.Error(err))
		return h.localizer.GetString(lang, "error.queryFailed")
	}
	return TrackingText(h.localizer, lang, c)
}

func (h *CommandHandler) stats(ctx context.Context, lang string) string {
	rows, err := h.complaints.List(ctx, complaint.Filter{})
	if err != nil {
		h.logger.Error("telegram stats failed", zap.Error(err))
		return h.localizer.GetString(lang, "error.queryFailed")
	}
	summary := analysis.Public(rows, h.now())
	return h.localizer.Format(lang, "telegram.stats", map[string]any{
		"total":    summary.Total,
		"resolved": summary.Resolved,
		"rate":     summary.ResolutionRate,
	})
}

// TrackingText renders a complaint the way the tracking page does: status,
// status message, and the official response and priority when present.
func TrackingText(l *localization.Localizer, lang string, c *models.Complaint) string {
	messageKey := "status_message." + string(c.Status)
	if !c.Status.Valid() {
		messageKey = "status_message.unknown"
	}

	var b strings.Builder
	b.WriteString(l.Format(lang, "telegram.trackResult", map[string]any{
		"code":    c.ComplaintID,
		"title":   c.Title,
		"status":  l.GetString(lang, "status."+string(c.Status)),
		"message": l.GetString(lang, messageKey),
	}))
	if c.AdminResponse != nil && *c.AdminResponse != "" {
		b.WriteString("\n")
		b.WriteString(l.Format(lang, "telegram.adminResponse", map[string]any{"response": *c.AdminResponse}))
	}
	if c.Priority != nil && *c.Priority > 1 {
		b.WriteString("\n")
		b.WriteString(l.Format(lang, "telegram.priority", map[string]any{
			"priority": l.GetString(lang, fmt.Sprintf("priority.%d", *c.Priority)),
		}))
	}
	return b.String()
}
