// Package settings — service.go содержит бизнес-логику настроек чата:
// управление фильтром слов и ролью модератора.
package settings

import (
	"context"

	"serotonyl.ru/moderation-bot/internal/common"
)

// Store — хранилище настроек. Реализуется Repository,
// в тестах подменяется фейком.
type Store interface {
	Get(ctx context.Context, chatID int64) (*ChatSettings, error)
	Upsert(ctx context.Context, s *ChatSettings) error
}

// Service управляет настройками чатов.
type Service struct {
	store Store
}

// NewService создаёт сервис настроек.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get возвращает настройки чата (по умолчанию — пустые).
func (s *Service) Get(ctx context.Context, chatID int64) (*ChatSettings, error) {
	return s.store.Get(ctx, chatID)
}

// SetModRole сохраняет название роли модератора для чата.
func (s *Service) SetModRole(ctx context.Context, chatID int64, role string) error {
	cfg, err := s.store.Get(ctx, chatID)
	if err != nil {
		return err
	}
	cfg.ModRole = role
	return s.store.Upsert(ctx, cfg)
}

// FilteredWords возвращает фильтр слов чата.
func (s *Service) FilteredWords(ctx context.Context, chatID int64) (map[string]int, error) {
	cfg, err := s.store.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return cfg.FilteredWords, nil
}

// UpdateFilter применяет действие add/remove/update/view к фильтру слов.
// Валидация происходит ДО какой-либо записи: некорректный запрос
// не меняет состояние.
//
// points передаётся указателем: для view и remove он не нужен.
func (s *Service) UpdateFilter(ctx context.Context, chatID int64, action FilterAction, word string, points *int) (*ChatSettings, error) {
	if action != ActionView && word == "" {
		return nil, common.ErrWordRequired
	}

	cfg, err := s.store.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionView:
		return cfg, nil

	case ActionAdd:
		if _, exists := cfg.FilteredWords[word]; exists {
			return nil, common.ErrWordExists
		}
		if points == nil {
			return nil, common.ErrPointsRequired
		}
		cfg.FilteredWords[word] = *points

	case ActionRemove:
		if _, exists := cfg.FilteredWords[word]; !exists {
			return nil, common.ErrWordNotFound
		}
		delete(cfg.FilteredWords, word)

	case ActionUpdate:
		if _, exists := cfg.FilteredWords[word]; !exists {
			return nil, common.ErrWordNotFound
		}
		if points == nil {
			return nil, common.ErrPointsRequired
		}
		cfg.FilteredWords[word] = *points

	default:
		return nil, common.ErrUnknownAction
	}

	if err := s.store.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
