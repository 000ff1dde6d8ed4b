// Package telegram handles the integration with the Telegram Bot API.
// Residents can track complaints and read statistics through bot commands;
// officials receive a message in their group for every new or updated
// complaint.
package telegram

import (
	"context"

	"wangsammo/backend/internal/localization"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotService receives Telegram updates and routes commands to the handler.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Notifier  *Notifier
	localizer *localization.Localizer
	logger    *zap.Logger
}

// NewBotService authorizes the bot and builds the officials' notifier. The
// notifier is usually wired into the complaint service before Run is called.
func NewBotService(token string, officialsChatID int64, localizer *localization.Localizer, logger *zap.Logger) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	logger.Info("telegram bot authorized", zap.String("username", bot.Self.UserName))

	return &BotService{
		BotAPI:    bot,
		Notifier:  NewNotifier(bot, officialsChatID, localizer),
		localizer: localizer,
		logger:    logger,
	}, nil
}

// Run long-polls for updates and answers commands from complaints until ctx
// is done.
func (s *BotService) Run(ctx context.Context, complaints ComplaintReader) {
	commands := NewCommandHandler(complaints, s.localizer, s.BotAPI, s.logger)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			s.BotAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			commands.HandleUpdate(ctx, &update)
		}
	}
}
