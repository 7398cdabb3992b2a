// Package settings хранит настройки чата: роль модератора и фильтр слов.
// models.go описывает структуру настроек.
package settings

import "time"

// ChatSettings — настройки одного чата.
type ChatSettings struct {
	ChatID int64 `db:"chat_id"`
	// Название роли модератора (кастомный титул администратора в Telegram).
	// Кто и как его интерпретирует — дело слоя авторизации, не наше.
	ModRole string `db:"mod_role"`
	// Фильтруемые слова: слово → сколько баллов начислить
	FilteredWords map[string]int `db:"filtered_words"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// FilterAction — действие команды /filter.
type FilterAction string

const (
	ActionAdd    FilterAction = "add"
	ActionRemove FilterAction = "remove"
	ActionUpdate FilterAction = "update"
	ActionView   FilterAction = "view"
)

// ParseFilterAction разбирает строку действия.
// Вторым значением возвращает false для неизвестных действий.
func ParseFilterAction(s string) (FilterAction, bool) {
	switch FilterAction(s) {
	case ActionAdd, ActionRemove, ActionUpdate, ActionView:
		return FilterAction(s), true
	default:
		return "", false
	}
}
