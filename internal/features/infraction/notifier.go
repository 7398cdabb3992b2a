// Package infraction — notifier.go отправляет предупреждения о смене статуса.
package infraction

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/common"
)

// notifyAscension отправляет личное предупреждение, если статус стал строже
// и о таком (или более строгом) статусе пользователь ещё не предупреждался.
//
// Вызывается внутри транзакции applyDelta: маркер LastNotifiedTier
// фиксируется тем же коммитом, что и баллы, поэтому падение между
// обновлением баллов и маркера не приводит к повторному предупреждению.
func (s *Service) notifyAscension(ctx context.Context, rec *Record, newTier Tier) {
	if newTier <= rec.LastNotifiedTier {
		return
	}
	text, ok := s.policy.Messages[newTier]
	if !ok {
		return
	}

	msg := composeWarning(text, rec)
	if err := s.messenger.SendDM(ctx, rec.UserID, msg); err != nil {
		// Пользователь мог закрыть личку боту. Это не причина ронять
		// транзакцию с баллами.
		log.WithError(err).WithFields(log.Fields{
			"chat_id": rec.ChatID,
			"user_id": rec.UserID,
			"tier":    newTier.String(),
		}).Warn("Не удалось доставить предупреждение")
	} else {
		log.WithFields(log.Fields{
			"user_id": rec.UserID,
			"tier":    newTier.String(),
		}).Info("Предупреждение отправлено")
	}

	// Маркер двигаем и при неудачной доставке: иначе каждый следующий
	// тик затухания пытался бы достучаться заново. Политика at-most-once.
	rec.LastNotifiedTier = newTier
}

// composeWarning собирает текст предупреждения: сообщение статуса,
// текущие баллы и читабельный журнал нарушений.
func composeWarning(tierText string, rec *Record) string {
	return fmt.Sprintf("%s\n\nТекущие баллы: %d\n\nЖурнал нарушений:\n%s",
		tierText, rec.Points, FormatLog(rec.Log))
}

// FormatLog рендерит журнал в строки вида
// «• Действие | Баллы | Время». Используется в предупреждениях
// и в командах /view и /log.
func FormatLog(entries []LogEntry) string {
	if len(entries) == 0 {
		return "Нарушений не зафиксировано."
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("• Действие: %s | Баллы: %+d | Время: %s",
			describeKind(e), e.PointDelta, common.FormatDateTime(e.Timestamp))
		if e.Note != "" {
			line += " | " + e.Note
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// describeKind — человекочитаемое название типа записи.
func describeKind(e LogEntry) string {
	switch e.Kind {
	case KindManual:
		return fmt.Sprintf("нарушение от %s", e.ActorName)
	case KindFilterHit:
		return fmt.Sprintf("фильтр слов (%s)", e.Word)
	case KindDecay:
		return "затухание"
	case KindExclusion:
		return "бан"
	case KindReversal:
		return "разбан"
	default:
		return string(e.Kind)
	}
}
