package bot

import (
	"context"

	fulfillment "campaign-bot-backend/internal/features/fulfillment/service"
	"campaign-bot-backend/internal/platform/telegram"
)

type telegramNotifier struct {
	tg *telegram.Client
}

// NewNotifier adapts the Telegram client to the fulfillment engine's
// notification surface.
func NewNotifier(tg *telegram.Client) fulfillment.Notifier {
	return &telegramNotifier{tg: tg}
}

func (n *telegramNotifier) Notify(ctx context.Context, userID int64, text string) error {
	return n.tg.SendMessage(ctx, userID, text)
}

func (n *telegramNotifier) NotifyWithLink(ctx context.Context, userID int64, text, linkLabel, url string) error {
	rows := [][]telegram.InlineButton{{{Text: linkLabel, URL: url}}}
	return n.tg.SendMessageWithButtons(ctx, userID, text, rows)
}
