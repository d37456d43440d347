package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// UpdatePoller feeds Telegram updates into the bot via long polling. Used
// when no public webhook URL is configured.
type UpdatePoller struct {
	telegram *TelegramClient
	bot      *BotService
	logger   *zap.Logger
}

func NewUpdatePoller(telegram *TelegramClient, bot *BotService, logger *zap.Logger) *UpdatePoller {
	return &UpdatePoller{telegram: telegram, bot: bot, logger: logger}
}

// Run polls until ctx is cancelled. Updates are dispatched concurrently;
// the bot's per-chat locks keep each conversation ordered.
func (p *UpdatePoller) Run(ctx context.Context) {
	var offset int64
	p.logger.Info("Update poller started")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.telegram.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("getUpdates failed, backing off", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			go p.bot.HandleUpdate(ctx, update)
		}
	}
}
