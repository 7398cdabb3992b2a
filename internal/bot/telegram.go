// Package bot — telegram.go реализует интерфейсы ядра нарушений
// (infraction.Messenger и infraction.Directory) поверх Telegram Bot API.
// Ядро о Telegram не знает — ему достаточно этих двух адаптеров.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Telegram — адаптер доставки сообщений и банов.
type Telegram struct {
	api *tgbotapi.BotAPI
}

// NewTelegram создаёт адаптер.
func NewTelegram(api *tgbotapi.BotAPI) *Telegram {
	return &Telegram{api: api}
}

// SendDM отправляет личное сообщение пользователю.
// Если пользователь не открывал личку боту, Telegram вернёт ошибку —
// её разбирает вызывающий (для предупреждений это не фатально).
func (t *Telegram) SendDM(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("доставка личного сообщения: %w", err)
	}
	return nil
}

// IsBanned проверяет, забанен ли пользователь в чате.
func (t *Telegram) IsBanned(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := t.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("проверка статуса участника: %w", err)
	}
	return member.WasKicked(), nil
}

// Ban банит пользователя в чате. Telegram не принимает причину бана,
// поэтому она остаётся в журнале и в логах.
func (t *Telegram) Ban(ctx context.Context, chatID, userID int64, reason string) error {
	_, err := t.api.Request(tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		return fmt.Errorf("бан участника: %w", err)
	}

	log.WithFields(log.Fields{
		"chat_id": chatID,
		"user_id": userID,
		"reason":  reason,
	}).Info("Пользователь забанен")
	return nil
}

// Unban снимает бан. OnlyIfBanned бережёт обычных участников:
// без него Telegram выкинул бы из чата того, кто и не был забанен.
func (t *Telegram) Unban(ctx context.Context, chatID, userID int64) error {
	_, err := t.api.Request(tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		OnlyIfBanned: true,
	})
	if err != nil {
		return fmt.Errorf("разбан участника: %w", err)
	}
	return nil
}
