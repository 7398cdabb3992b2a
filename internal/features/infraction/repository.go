// Package infraction — repository.go выполняет операции с таблицей infractions.
// Вся работа с журналом в JSONB происходит здесь, на границе с БД.
package infraction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/moderation-bot/internal/common"
	"serotonyl.ru/moderation-bot/internal/db/postgres"
)

// Key идентифицирует запись: пользователь в конкретном чате.
type Key struct {
	ChatID int64
	UserID int64
}

// Repository работает с таблицей infractions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий нарушений.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает запись пользователя или nil, если записи нет.
func (r *Repository) Get(ctx context.Context, chatID, userID int64) (*Record, error) {
	query := `
		SELECT points, status, notes, log, last_notified_tier, created_at, updated_at
		FROM infractions WHERE chat_id = $1 AND user_id = $2
	`
	rec, err := scanRecord(r.db.QueryRow(ctx, query, chatID, userID), chatID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записи: %w", err)
	}
	return rec, nil
}

// UpdateTx атомарно изменяет запись пользователя: читает текущее состояние
// под блокировкой строки, применяет fn и сохраняет все поля одним UPDATE.
//
// Два одновременных вызова по одному ключу сериализуются блокировкой FOR UPDATE:
// второй дождётся коммита первого и увидит его результат — потерянных
// обновлений не бывает. Конфликты и обрывы соединения повторяются
// с ограниченным числом попыток (см. postgres.WithTxRetry).
//
// Если fn возвращает errNoChange, транзакция откатывается и запись
// остаётся нетронутой; ошибка передаётся вызывающему как признак «пропущено».
func (r *Repository) UpdateTx(ctx context.Context, chatID, userID int64, fn func(rec *Record) error) (*Record, error) {
	var result *Record

	err := postgres.WithTxRetry(ctx, r.db, func(tx pgx.Tx) error {
		// Материализуем строку, чтобы FOR UPDATE было что блокировать.
		// При гонке двух создателей один INSERT выигрывает, второй - no-op,
		// дальше оба сериализуются на блокировке строки.
		_, err := tx.Exec(ctx, `
			INSERT INTO infractions (chat_id, user_id, points, status, notes, log)
			VALUES ($1, $2, 0, 'active', '', '[]')
			ON CONFLICT (chat_id, user_id) DO NOTHING
		`, chatID, userID)
		if err != nil {
			return fmt.Errorf("ошибка создания записи: %w", err)
		}

		row := tx.QueryRow(ctx, `
			SELECT points, status, notes, log, last_notified_tier, created_at, updated_at
			FROM infractions WHERE chat_id = $1 AND user_id = $2
			FOR UPDATE
		`, chatID, userID)
		rec, err := scanRecord(row, chatID, userID)
		if err != nil {
			return fmt.Errorf("ошибка чтения записи: %w", err)
		}

		if err := fn(rec); err != nil {
			return err
		}

		var lastNotified *string
		if rec.LastNotifiedTier != TierActive {
			s := rec.LastNotifiedTier.String()
			lastNotified = &s
		}

		_, err = tx.Exec(ctx, `
			UPDATE infractions
			SET points = $3, status = $4, notes = $5, log = $6,
			    last_notified_tier = $7, updated_at = NOW()
			WHERE chat_id = $1 AND user_id = $2
		`, chatID, userID, rec.Points, rec.Status.String(), rec.Notes,
			encodeLog(rec.Log), lastNotified)
		if err != nil {
			return fmt.Errorf("ошибка сохранения записи: %w", err)
		}

		result = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ScanPositive возвращает ключи всех записей с положительными баллами.
// Используется тиком затухания: записи с нулём баллов его не интересуют.
func (r *Repository) ScanPositive(ctx context.Context) ([]Key, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id, user_id FROM infractions WHERE points > 0 ORDER BY chat_id, user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования записей: %w", err)
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		if err := rows.Scan(&k.ChatID, &k.UserID); err != nil {
			return nil, fmt.Errorf("ошибка чтения ключа: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdateNotes меняет заметки модераторов. Журнал при этом не трогается.
func (r *Repository) UpdateNotes(ctx context.Context, chatID, userID int64, notes string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE infractions SET notes = $3, updated_at = NOW() WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID, notes)
	if err != nil {
		return fmt.Errorf("ошибка обновления заметок: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrRecordNotFound
	}
	return nil
}

// scanRecord читает одну строку таблицы в Record.
func scanRecord(row pgx.Row, chatID, userID int64) (*Record, error) {
	var (
		rec          Record
		status       string
		rawLog       []byte
		lastNotified *string
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(&rec.Points, &status, &rec.Notes, &rawLog, &lastNotified, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.ChatID = chatID
	rec.UserID = userID
	rec.Status = ParseTier(status)
	rec.Log = decodeLog(rawLog)
	if lastNotified != nil {
		rec.LastNotifiedTier = ParseTier(*lastNotified)
	}
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	return &rec, nil
}
