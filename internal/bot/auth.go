// Package bot — auth.go содержит единую проверку прав модератора.
// Раньше такие проверки легко размножаются по обработчикам — здесь она
// одна и используется всеми командами модерации.
package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/features/settings"
)

// Authorizer отвечает на один вопрос: может ли пользователь модерировать
// в данном чате.
type Authorizer struct {
	api      *tgbotapi.BotAPI
	settings *settings.Service
}

// NewAuthorizer создаёт проверку прав.
func NewAuthorizer(api *tgbotapi.BotAPI, settingsService *settings.Service) *Authorizer {
	return &Authorizer{api: api, settings: settingsService}
}

// CanModerate проверяет права:
//   - создатель чата может всегда;
//   - администратор может, если роль модератора не настроена (/setup),
//     либо его кастомный титул совпадает с настроенной ролью;
//   - остальные не могут.
//
// При ошибке Telegram API отвечаем «нельзя»: лучше отказать модератору,
// чем пустить постороннего.
func (a *Authorizer) CanModerate(ctx context.Context, chatID, userID int64) bool {
	member, err := a.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chatID,
			UserID: userID,
		},
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Error("Не удалось проверить права (GetChatMember)")
		return false
	}

	switch member.Status {
	case "creator":
		return true
	case "administrator":
		cfg, err := a.settings.Get(ctx, chatID)
		if err != nil {
			log.WithError(err).WithField("chat_id", chatID).Error("Не удалось прочитать настройки чата")
			return false
		}
		// Роль не настроена — модерирует любой администратор
		if cfg.ModRole == "" {
			return true
		}
		return member.CustomTitle == cfg.ModRole
	default:
		return false
	}
}
