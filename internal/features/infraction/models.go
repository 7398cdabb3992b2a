// Package infraction реализует систему баллов нарушений.
// models.go описывает запись пользователя и журнал действий.
package infraction

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

// Kind — тип записи в журнале нарушений.
type Kind string

// Возможные типы записей журнала
const (
	KindManual    Kind = "manual_adjustment" // Нарушение выдано модератором
	KindFilterHit Kind = "filter_hit"        // Сработал фильтр слов
	KindDecay     Kind = "decay"             // Плановое затухание баллов
	KindExclusion Kind = "exclusion"         // Бан (автоматический или ручной)
	KindReversal  Kind = "reversal"          // Разбан
)

// Actor — кто выполнил действие (модератор или сам бот).
type Actor struct {
	ID   int64
	Name string
}

// SystemActor используется для записей, которые создаёт сам бот
// (затухание, фильтр слов, автоматический бан).
var SystemActor = Actor{ID: 0, Name: "system"}

// LogEntry — одна запись журнала нарушений. После добавления не меняется.
type LogEntry struct {
	ActorID    int64     `json:"action_by,omitempty"`
	ActorName  string    `json:"action_by_name"`
	Kind       Kind      `json:"action"`
	Word       string    `json:"word,omitempty"`       // Для filter_hit: какое слово сработало
	PointDelta int       `json:"points_delta"`         // Фактическое изменение (с учётом отсечки в 0)
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Record — запись о нарушениях пользователя в конкретном чате.
// Ключ: (ChatID, UserID), уникален.
type Record struct {
	ChatID  int64
	UserID  int64
	Points  int    // Всегда >= 0
	Status  Tier   // Вычисляется из Points, кроме одностороннего бана
	Notes   string // Свободные заметки модераторов, меняются отдельно от журнала
	Log     []LogEntry
	// Самый строгий статус, о котором пользователь уже предупреждён.
	// Нужен, чтобы не слать одно предупреждение дважды. При затухании не сбрасывается.
	LastNotifiedTier Tier
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Entries возвращает журнал записи в порядке добавления.
// Порядок добавления совпадает с хронологическим.
func (r *Record) Entries() []LogEntry {
	return r.Log
}

// decodeLog разбирает журнал из JSONB-представления.
// Испорченный JSON не валит операцию: запись обрабатывается с пустым
// журналом, аномалия пишется в лог.
func decodeLog(raw []byte) []LogEntry {
	if len(raw) == 0 {
		return nil
	}
	var entries []LogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.WithError(err).Error("Журнал нарушений повреждён, считаем пустым")
		return nil
	}
	return entries
}

// encodeLog сериализует журнал для хранения.
// Кодирование происходит только на границе с БД, не в бизнес-логике.
func encodeLog(entries []LogEntry) []byte {
	if entries == nil {
		entries = []LogEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		// Журнал состоит из простых типов, сюда попасть нельзя
		log.WithError(err).Error("Не удалось сериализовать журнал")
		return []byte("[]")
	}
	return raw
}
