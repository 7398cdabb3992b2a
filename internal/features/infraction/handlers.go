// Package infraction — handlers.go обрабатывает команды модерации:
// /infraction, /view, /log, /notes, /ban, /unban.
package infraction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/common"
)

// Handler обрабатывает команды модерации.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик команд модерации.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleInfraction обрабатывает /infraction <баллы> <заметка> (ответом
// на сообщение нарушителя или с его ID первым аргументом).
func (h *Handler) HandleInfraction(ctx context.Context, chatID int64, actor Actor, target int64, args []string) {
	if len(args) < 2 {
		h.sendMessage(chatID, "❌ Формат: /infraction <пользователь> <баллы> <заметка>")
		return
	}

	delta, err := strconv.Atoi(args[0])
	if err != nil {
		h.sendMessage(chatID, "❌ Баллы должны быть целым числом")
		return
	}
	note := strings.Join(args[1:], " ")

	rec, err := h.service.ApplyManual(ctx, chatID, target, actor, delta, note)
	if err != nil {
		log.WithError(err).Error("Ошибка выдачи нарушения")
		h.sendMessage(chatID, "❌ Не удалось сохранить нарушение, попробуйте позже")
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("Записано. У пользователя теперь %s, статус: %s.",
		common.FormatPoints(rec.Points), rec.Status))
}

// HandleView обрабатывает /view — показывает баллы, статус, заметки и журнал.
func (h *Handler) HandleView(ctx context.Context, chatID, target int64) {
	rec, err := h.service.GetRecord(ctx, chatID, target)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения записи")
		h.sendMessage(chatID, "❌ Не удалось прочитать запись")
		return
	}

	notes := rec.Notes
	if notes == "" {
		notes = "нет"
	}
	h.sendMessage(chatID, fmt.Sprintf(
		"Пользователь %d:\nБаллы: %d\nСтатус: %s\nЗаметки: %s\nЖурнал:\n%s",
		target, rec.Points, rec.Status, notes, FormatLog(rec.Entries())))
}

// HandleLog обрабатывает /log — показывает журнал нарушений.
func (h *Handler) HandleLog(ctx context.Context, chatID, target int64) {
	entries, err := h.service.ListLog(ctx, chatID, target)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения журнала")
		h.sendMessage(chatID, "❌ Не удалось прочитать журнал")
		return
	}
	h.sendMessage(chatID, "Журнал нарушений:\n"+FormatLog(entries))
}

// HandleNotes обрабатывает /notes <view|edit> — заметки модераторов.
func (h *Handler) HandleNotes(ctx context.Context, chatID, target int64, args []string) {
	if len(args) < 1 {
		h.sendMessage(chatID, "❌ Формат: /notes <view|edit> <пользователь> [текст]")
		return
	}

	switch strings.ToLower(args[0]) {
	case "view":
		notes, err := h.service.GetNotes(ctx, chatID, target)
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			h.sendMessage(chatID, "По пользователю нет записи")
		case err != nil:
			log.WithError(err).Error("Ошибка чтения заметок")
			h.sendMessage(chatID, "❌ Не удалось прочитать заметки")
		case notes == "":
			h.sendMessage(chatID, "Заметок нет")
		default:
			h.sendMessage(chatID, "Заметки:\n"+notes)
		}

	case "edit":
		if len(args) < 2 {
			h.sendMessage(chatID, "❌ Укажите новый текст заметок")
			return
		}
		text := strings.Join(args[1:], " ")
		err := h.service.EditNotes(ctx, chatID, target, text)
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			h.sendMessage(chatID, "По пользователю нет записи")
		case err != nil:
			log.WithError(err).Error("Ошибка обновления заметок")
			h.sendMessage(chatID, "❌ Не удалось обновить заметки")
		default:
			h.sendMessage(chatID, "✅ Заметки обновлены")
		}

	default:
		h.sendMessage(chatID, "❌ Действие должно быть view или edit")
	}
}

// HandleBan обрабатывает /ban — ручной бан с записью в журнал.
func (h *Handler) HandleBan(ctx context.Context, chatID int64, actor Actor, target int64, args []string) {
	reason := strings.Join(args, " ")

	_, err := h.service.BanManually(ctx, chatID, target, actor, reason)
	switch {
	case errors.Is(err, common.ErrNoRecordForBan):
		h.sendMessage(chatID, "❌ "+common.ErrNoRecordForBan.Error())
	case err != nil:
		log.WithError(err).Error("Ошибка ручного бана")
		h.sendMessage(chatID, "❌ Не удалось забанить пользователя")
	default:
		h.sendMessage(chatID, fmt.Sprintf("Пользователь %d забанен.", target))
	}
}

// HandleUnban обрабатывает /unban — административный разбан.
func (h *Handler) HandleUnban(ctx context.Context, chatID int64, actor Actor, target int64) {
	_, err := h.service.Unban(ctx, chatID, target, actor)
	switch {
	case errors.Is(err, common.ErrNotBanned):
		h.sendMessage(chatID, "Пользователь не забанен")
	case errors.Is(err, common.ErrRecordNotFound):
		// Бан уже снят, просто нечего дописать в журнал
		h.sendMessage(chatID, fmt.Sprintf("Пользователь %d разбанен, записи в базе нет.", target))
	case err != nil:
		log.WithError(err).Error("Ошибка разбана")
		h.sendMessage(chatID, "❌ Не удалось разбанить пользователя")
	default:
		h.sendMessage(chatID, fmt.Sprintf("Пользователь %d разбанен.", target))
	}
}

// sendMessage — утилита для отправки ответов в чат.
func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
