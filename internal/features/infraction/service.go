// Package infraction — service.go содержит бизнес-логику баллов нарушений:
// атомарное применение дельт, пересчёт статуса, предупреждения и бан.
package infraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/common"
)

// Store — хранилище записей о нарушениях. Реализуется Repository,
// в тестах подменяется in-memory фейком.
type Store interface {
	Get(ctx context.Context, chatID, userID int64) (*Record, error)
	UpdateTx(ctx context.Context, chatID, userID int64, fn func(rec *Record) error) (*Record, error)
	ScanPositive(ctx context.Context) ([]Key, error)
	UpdateNotes(ctx context.Context, chatID, userID int64, notes string) error
}

// Directory — членство и бан в чате. Реализуется Telegram-адаптером.
type Directory interface {
	IsBanned(ctx context.Context, chatID, userID int64) (bool, error)
	Ban(ctx context.Context, chatID, userID int64, reason string) error
	Unban(ctx context.Context, chatID, userID int64) error
}

// Messenger — доставка личных сообщений пользователю.
type Messenger interface {
	SendDM(ctx context.Context, userID int64, text string) error
}

// errNoChange — признак «операция пропущена, запись не меняем».
// Возвращается из колбэка UpdateTx, транзакция при этом откатывается.
var errNoChange = errors.New("запись не изменена")

// Service управляет баллами нарушений.
type Service struct {
	store     Store
	directory Directory
	messenger Messenger
	policy    Policy
}

// NewService создаёт сервис нарушений.
func NewService(store Store, directory Directory, messenger Messenger, policy Policy) *Service {
	return &Service{
		store:     store,
		directory: directory,
		messenger: messenger,
		policy:    policy,
	}
}

// Policy возвращает действующую политику модерации.
func (s *Service) Policy() Policy {
	return s.policy
}

// ApplyManual выдаёт нарушение вручную (команда модератора).
// Дельта может быть и отрицательной — так модератор снимает баллы.
func (s *Service) ApplyManual(ctx context.Context, chatID, userID int64, actor Actor, delta int, note string) (*Record, error) {
	entry := LogEntry{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Kind:      KindManual,
		Note:      note,
		Timestamp: time.Now(),
	}
	rec, err := s.applyDelta(ctx, chatID, userID, delta, entry, false)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ApplyFilterHit начисляет баллы за сработавшее слово фильтра.
func (s *Service) ApplyFilterHit(ctx context.Context, chatID, userID int64, word string, points int) (*Record, error) {
	entry := LogEntry{
		ActorName: SystemActor.Name,
		Kind:      KindFilterHit,
		Word:      word,
		Note:      fmt.Sprintf("сработал фильтр слов: %s", word),
		Timestamp: time.Now(),
	}
	rec, err := s.applyDelta(ctx, chatID, userID, points, entry, false)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// applyDelta — единственное место, где меняются баллы.
//
// Внутри одной транзакции: читаем запись (или создаём пустую), отсекаем
// баллы снизу нулём, дописываем запись журнала с фактической дельтой,
// пересчитываем статус и, если статус стал строже, запускаем предупреждение
// и (на терминальном статусе) бан. Баллы, статус, журнал и маркер
// предупреждения фиксируются одним коммитом — между ними нет окна,
// в котором падение привело бы к повторному предупреждению.
//
// При skipIfZero (путь затухания) запись с нулём баллов не трогается вовсе:
// ни дельты, ни записи журнала.
func (s *Service) applyDelta(ctx context.Context, chatID, userID int64, delta int, entry LogEntry, skipIfZero bool) (*Record, error) {
	return s.store.UpdateTx(ctx, chatID, userID, func(rec *Record) error {
		if skipIfZero && rec.Points == 0 {
			return errNoChange
		}

		prevTier := rec.Status

		newPoints := rec.Points + delta
		if newPoints < 0 {
			newPoints = 0
		}
		// В журнал попадает фактическое изменение, с учётом отсечки
		entry.PointDelta = newPoints - rec.Points
		rec.Points = newPoints
		rec.Log = append(rec.Log, entry)

		// Статус всегда вычисляется из баллов, кроме одного исключения:
		// бан — односторонняя защёлка, затухание его не снимает.
		newTier := s.policy.Evaluate(newPoints)
		if prevTier == TierBanned && newTier != TierBanned {
			newTier = TierBanned
		}
		rec.Status = newTier

		if newTier > prevTier {
			s.notifyAscension(ctx, rec, newTier)
			if newTier == TierBanned {
				s.enforceBan(ctx, rec)
			}
		}
		return nil
	})
}

// GetRecord возвращает запись пользователя. Если записи нет — пустую
// запись по умолчанию (0 баллов, active), не создавая её в базе.
func (s *Service) GetRecord(ctx context.Context, chatID, userID int64) (*Record, error) {
	rec, err := s.store.Get(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &Record{ChatID: chatID, UserID: userID, Status: TierActive}
	}
	return rec, nil
}

// ListLog возвращает журнал пользователя в порядке добавления записей.
func (s *Service) ListLog(ctx context.Context, chatID, userID int64) ([]LogEntry, error) {
	rec, err := s.GetRecord(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	return rec.Entries(), nil
}

// GetNotes возвращает заметки модераторов по пользователю.
func (s *Service) GetNotes(ctx context.Context, chatID, userID int64) (string, error) {
	rec, err := s.store.Get(ctx, chatID, userID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", common.ErrRecordNotFound
	}
	return rec.Notes, nil
}

// EditNotes заменяет заметки модераторов. Журнал не трогается.
func (s *Service) EditNotes(ctx context.Context, chatID, userID int64, notes string) error {
	return s.store.UpdateNotes(ctx, chatID, userID, notes)
}

// BanManually банит пользователя командой модератора.
// Требует существующей записи о нарушениях (как в политике «сначала
// нарушение, потом бан»). Ошибка платформы здесь, в отличие от
// автоматического бана, отдаётся вызывающему — модератор ждёт ответа.
func (s *Service) BanManually(ctx context.Context, chatID, userID int64, actor Actor, reason string) (*Record, error) {
	existing, err := s.store.Get(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, common.ErrNoRecordForBan
	}

	if reason == "" {
		reason = "причина не указана"
	}

	return s.store.UpdateTx(ctx, chatID, userID, func(rec *Record) error {
		if err := s.directory.Ban(ctx, chatID, userID, reason); err != nil {
			return fmt.Errorf("не удалось забанить: %w", err)
		}
		rec.Log = append(rec.Log, LogEntry{
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Kind:      KindExclusion,
			Note:      reason,
			Timestamp: time.Now(),
		})
		rec.Status = TierBanned
		return nil
	})
}

// Unban снимает бан (административный разбан). Единственный способ
// выйти из терминального статуса: защёлка снимается, статус заново
// вычисляется из баллов, в журнал дописывается запись reversal.
func (s *Service) Unban(ctx context.Context, chatID, userID int64, actor Actor) (*Record, error) {
	banned, err := s.directory.IsBanned(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !banned {
		return nil, common.ErrNotBanned
	}

	if err := s.directory.Unban(ctx, chatID, userID); err != nil {
		return nil, fmt.Errorf("не удалось разбанить: %w", err)
	}

	existing, err := s.store.Get(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Бан сняли, но записи в базе нет — нечего дописывать
		return nil, common.ErrRecordNotFound
	}

	return s.store.UpdateTx(ctx, chatID, userID, func(rec *Record) error {
		rec.Log = append(rec.Log, LogEntry{
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Kind:      KindReversal,
			Note:      "пользователь разбанен",
			Timestamp: time.Now(),
		})
		rec.Status = s.policy.Evaluate(rec.Points)
		return nil
	})
}

// DecaySummary — итоги одного тика затухания.
type DecaySummary struct {
	Scanned int // Сколько записей попало в скан
	Decayed int // У скольких баллы уменьшились
	Skipped int // Пропущено (баллы уже 0 к моменту транзакции)
	Failed  int // Ошибки по отдельным записям
}

// DecaySweep выполняет один проход затухания: у всех записей с
// положительными баллами баллы уменьшаются на DecayAmount.
//
// Ошибка по одной записи не останавливает проход — она пишется в лог,
// скан продолжается. Между записями проверяется отмена контекста,
// чтобы на shutdown не дорабатывать длинный скан до конца.
func (s *Service) DecaySweep(ctx context.Context) (DecaySummary, error) {
	var sum DecaySummary

	keys, err := s.store.ScanPositive(ctx)
	if err != nil {
		return sum, fmt.Errorf("ошибка сканирования записей: %w", err)
	}
	sum.Scanned = len(keys)

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		entry := LogEntry{
			ActorName: SystemActor.Name,
			Kind:      KindDecay,
			Note:      "плановое затухание баллов",
			Timestamp: time.Now(),
		}
		_, err := s.applyDelta(ctx, k.ChatID, k.UserID, -s.policy.DecayAmount, entry, true)
		switch {
		case errors.Is(err, errNoChange):
			// Баллы успели стать нулём между сканом и транзакцией
			sum.Skipped++
		case err != nil:
			sum.Failed++
			log.WithError(err).WithFields(log.Fields{
				"chat_id": k.ChatID,
				"user_id": k.UserID,
			}).Error("Затухание по записи не прошло, пропускаем")
		default:
			sum.Decayed++
		}
	}

	return sum, nil
}
