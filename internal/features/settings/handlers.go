// Package settings — handlers.go обрабатывает команды /filter и /setup.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/common"
)

// Handler обрабатывает команды настроек чата.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик команд настроек.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleFilter обрабатывает /filter <add|remove|update|view> [слово] [баллы].
func (h *Handler) HandleFilter(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /filter <add|remove|update|view> [слово] [баллы]")
		return
	}

	action, ok := ParseFilterAction(strings.ToLower(args[0]))
	if !ok {
		h.sendMessage(chatID, "❌ "+common.ErrUnknownAction.Error())
		return
	}

	var word string
	if len(args) > 1 {
		word = strings.ToLower(args[1])
	}

	var points *int
	if len(args) > 2 {
		p, err := strconv.Atoi(args[2])
		if err != nil {
			h.sendMessage(chatID, "❌ Баллы должны быть целым числом")
			return
		}
		points = &p
	}

	cfg, err := h.service.UpdateFilter(ctx, chatID, action, word, points)
	if err != nil {
		if errors.Is(err, common.ErrWordRequired) || errors.Is(err, common.ErrPointsRequired) ||
			errors.Is(err, common.ErrWordExists) || errors.Is(err, common.ErrWordNotFound) {
			h.sendMessage(chatID, "❌ "+err.Error())
			return
		}
		log.WithError(err).Error("Ошибка обновления фильтра")
		h.sendMessage(chatID, "❌ Не удалось обновить фильтр")
		return
	}

	switch action {
	case ActionView:
		h.sendMessage(chatID, formatWords(cfg.FilteredWords))
	case ActionAdd:
		h.sendMessage(chatID, fmt.Sprintf("✅ Слово «%s» добавлено в фильтр (%d %s)",
			word, *points, common.PluralizePoints(*points)))
	case ActionRemove:
		h.sendMessage(chatID, fmt.Sprintf("✅ Слово «%s» убрано из фильтра", word))
	case ActionUpdate:
		h.sendMessage(chatID, fmt.Sprintf("✅ Слово «%s» теперь стоит %d %s",
			word, *points, common.PluralizePoints(*points)))
	}
}

// HandleSetup обрабатывает /setup <роль> — сохраняет название роли
// модератора для чата.
func (h *Handler) HandleSetup(ctx context.Context, chatID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /setup <название роли модератора>")
		return
	}

	role := strings.Join(args, " ")
	if len([]rune(role)) > 64 {
		h.sendMessage(chatID, "❌ Роль слишком длинная (максимум 64 символа)")
		return
	}

	if err := h.service.SetModRole(ctx, chatID, role); err != nil {
		log.WithError(err).Error("Ошибка сохранения роли")
		h.sendMessage(chatID, "❌ Не удалось сохранить роль")
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Роль модератора: «%s». Администраторы с этим титулом могут модерировать.", role))
}

// formatWords рендерит фильтр слов для команды /filter view.
func formatWords(words map[string]int) string {
	if len(words) == 0 {
		return "Фильтр слов пуст."
	}

	// Сортируем для стабильного вывода
	keys := make([]string, 0, len(words))
	for w := range words {
		keys = append(keys, w)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys)+1)
	lines = append(lines, "Фильтруемые слова:")
	for _, w := range keys {
		lines = append(lines, fmt.Sprintf("- %s: %d %s", w, words[w], common.PluralizePoints(words[w])))
	}
	return strings.Join(lines, "\n")
}

// sendMessage — утилита для отправки ответов в чат.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
