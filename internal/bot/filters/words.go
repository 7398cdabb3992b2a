// Package filters содержит фильтры входящих сообщений.
// words.go проверяет текст на слова из фильтра чата и начисляет баллы.
package filters

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/common"
	"serotonyl.ru/moderation-bot/internal/features/infraction"
	"serotonyl.ru/moderation-bot/internal/features/settings"
)

// WordFilter сканирует сообщения группового чата на фильтруемые слова.
type WordFilter struct {
	settings    *settings.Service
	infractions *infraction.Service
	bot         *tgbotapi.BotAPI
}

// NewWordFilter создаёт фильтр слов.
func NewWordFilter(settingsService *settings.Service, infractionService *infraction.Service, bot *tgbotapi.BotAPI) *WordFilter {
	return &WordFilter{
		settings:    settingsService,
		infractions: infractionService,
		bot:         bot,
	}
}

// Inspect проверяет сообщение и начисляет баллы за каждое сработавшее
// слово отдельной записью журнала. Боты не проверяются.
//
// Ошибка по одному слову не мешает начислению за остальные.
func (f *WordFilter) Inspect(ctx context.Context, message *tgbotapi.Message) {
	if message == nil || message.From == nil || message.From.IsBot || message.Text == "" {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	words, err := f.settings.FilteredWords(ctx, chatID)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Не удалось прочитать фильтр слов")
		return
	}

	hits := settings.DetectWords(message.Text, words)
	if len(hits) == 0 {
		return
	}

	total := 0
	for word, points := range hits {
		if _, err := f.infractions.ApplyFilterHit(ctx, chatID, userID, word, points); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"chat_id": chatID,
				"user_id": userID,
				"word":    word,
			}).Error("Не удалось начислить баллы за слово")
			continue
		}
		total += points
	}

	if total == 0 {
		return
	}

	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Вы использовали запрещённые слова. Начислено %s.", common.FormatPoints(total)))
	reply.ReplyToMessageID = message.MessageID
	if _, err := f.bot.Send(reply); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось отправить уведомление о фильтре")
	}
}
