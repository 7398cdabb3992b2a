// Package infraction — enforcer.go исполняет бан при терминальном статусе.
package infraction

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// enforceBan банит пользователя, достигшего терминального статуса.
//
// Перед баном проверяем у платформы, не забанен ли он уже: два почти
// одновременных обновления могут оба довести баллы до порога, но бан
// должен исполниться один раз. Ошибки платформы логируются и не
// прерывают транзакцию с баллами — статус banned фиксируется в любом случае.
func (s *Service) enforceBan(ctx context.Context, rec *Record) {
	logger := log.WithFields(log.Fields{
		"chat_id": rec.ChatID,
		"user_id": rec.UserID,
	})

	banned, err := s.directory.IsBanned(ctx, rec.ChatID, rec.UserID)
	if err != nil {
		// Проверка не удалась — пробуем банить, платформа сама
		// отклонит повторный бан
		logger.WithError(err).Warn("Не удалось проверить статус бана")
	} else if banned {
		logger.Debug("Пользователь уже забанен, повторный бан не нужен")
		return
	}

	reason := s.policy.BanReason()
	if err := s.directory.Ban(ctx, rec.ChatID, rec.UserID, reason); err != nil {
		logger.WithError(err).Error("Не удалось исполнить бан")
		return
	}

	rec.Log = append(rec.Log, LogEntry{
		ActorName: SystemActor.Name,
		Kind:      KindExclusion,
		Note:      reason,
		Timestamp: time.Now(),
	})
	logger.Info("Пользователь забанен за превышение лимита баллов")
}
