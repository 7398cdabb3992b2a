// Package admin — handlers.go обрабатывает команды оператора в личке:
// /login, /logout, /forcedecay.
package admin

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/common"
	"serotonyl.ru/moderation-bot/internal/features/infraction"
)

// DecayRunner — ручной запуск тика затухания. Реализуется планировщиком.
type DecayRunner interface {
	RunNow(ctx context.Context) (infraction.DecaySummary, error)
}

// Handler обрабатывает команды оператора.
type Handler struct {
	service *Service
	decay   DecayRunner
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик команд оператора.
func NewHandler(service *Service, decay DecayRunner, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, decay: decay, bot: bot}
}

// HandleLogin обрабатывает /login <пароль>. Работает только в личке —
// пароль в групповом чате остался бы в истории у всех.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /login <пароль>")
		return
	}

	err := h.service.VerifyPassword(ctx, userID, args[0])
	switch {
	case errors.Is(err, common.ErrTooManyAttempts), errors.Is(err, common.ErrWrongPassword):
		h.sendMessage(chatID, "❌ "+err.Error())
	case err != nil:
		log.WithError(err).Error("Ошибка входа оператора")
		h.sendMessage(chatID, "❌ Не удалось выполнить вход")
	default:
		h.sendMessage(chatID, "✅ Вход выполнен, сессия на 24 часа. Доступно: /forcedecay, /logout")
	}
}

// HandleLogout обрабатывает /logout.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода оператора")
		h.sendMessage(chatID, "❌ Не удалось выйти")
		return
	}
	h.sendMessage(chatID, "Сессия закрыта")
}

// HandleForceDecay обрабатывает /forcedecay — синхронно запускает один тик
// затухания вне расписания и отчитывается об итогах.
func (h *Handler) HandleForceDecay(ctx context.Context, chatID, userID int64) {
	if !h.service.HasActiveSession(ctx, userID) {
		h.sendMessage(chatID, "❌ Нужен вход оператора: /login <пароль>")
		return
	}

	summary, err := h.decay.RunNow(ctx)
	if err != nil {
		log.WithError(err).Error("Ручной тик затухания не прошёл")
		h.sendMessage(chatID, "❌ "+err.Error())
		return
	}

	h.sendMessage(chatID, fmt.Sprintf(
		"Тик затухания выполнен.\nПросканировано: %d\nУменьшено: %d\nПропущено: %d\nОшибок: %d",
		summary.Scanned, summary.Decayed, summary.Skipped, summary.Failed))
}

// sendMessage — утилита для отправки ответов.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
