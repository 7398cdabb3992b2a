// Package settings — repository.go выполняет операции с таблицей chat_settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Repository работает с таблицей chat_settings.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий настроек.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает настройки чата. Если записи нет — настройки по умолчанию
// (пустая роль, пустой фильтр), запись при этом не создаётся.
func (r *Repository) Get(ctx context.Context, chatID int64) (*ChatSettings, error) {
	query := `
		SELECT mod_role, filtered_words, created_at, updated_at
		FROM chat_settings WHERE chat_id = $1
	`
	var (
		s        ChatSettings
		rawWords []byte
	)
	err := r.db.QueryRow(ctx, query, chatID).Scan(&s.ModRole, &rawWords, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &ChatSettings{ChatID: chatID, FilteredWords: map[string]int{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}

	s.ChatID = chatID
	s.FilteredWords = decodeWords(rawWords)
	return &s, nil
}

// Upsert создаёт или обновляет настройки чата целиком.
func (r *Repository) Upsert(ctx context.Context, s *ChatSettings) error {
	rawWords, err := json.Marshal(s.FilteredWords)
	if err != nil {
		return fmt.Errorf("ошибка сериализации фильтра: %w", err)
	}

	query := `
		INSERT INTO chat_settings (chat_id, mod_role, filtered_words)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO UPDATE
		SET mod_role = EXCLUDED.mod_role,
		    filtered_words = EXCLUDED.filtered_words,
		    updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, s.ChatID, s.ModRole, rawWords); err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}

// decodeWords разбирает фильтр слов из JSONB. Испорченный JSON не валит
// операцию: фильтр считается пустым, аномалия пишется в лог.
func decodeWords(raw []byte) map[string]int {
	words := map[string]int{}
	if len(raw) == 0 {
		return words
	}
	if err := json.Unmarshal(raw, &words); err != nil {
		log.WithError(err).Error("Фильтр слов повреждён, считаем пустым")
		return map[string]int{}
	}
	return words
}
