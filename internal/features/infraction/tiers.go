// Package infraction — tiers.go описывает статусы и пороги баллов.
// Вся политика модерации (интервал затухания, размер затухания, пороги,
// тексты предупреждений) собрана в одной структуре Policy — единственном
// источнике правды.
package infraction

import (
	"fmt"
	"time"
)

// Tier — статус пользователя по количеству баллов.
// Порядок значений задаёт строгость: чем больше, тем хуже.
type Tier int

const (
	TierActive     Tier = iota // Обычный участник
	TierFlagged                // Накопил заметное количество нарушений
	TierRiskingBan             // На грани бана
	TierBanned                 // Забанен (терминальный статус)
)

// String возвращает строковое представление для хранения в БД.
func (t Tier) String() string {
	switch t {
	case TierFlagged:
		return "flagged"
	case TierRiskingBan:
		return "risking_ban"
	case TierBanned:
		return "banned"
	default:
		return "active"
	}
}

// ParseTier разбирает строку из БД обратно в Tier.
// Неизвестные значения считаются active.
func ParseTier(s string) Tier {
	switch s {
	case "flagged":
		return TierFlagged
	case "risking_ban":
		return TierRiskingBan
	case "banned":
		return TierBanned
	default:
		return TierActive
	}
}

// Threshold — одна строка таблицы порогов: с какого количества баллов
// начинается статус.
type Threshold struct {
	Points int
	Tier   Tier
}

// Policy — конфигурация модерации.
type Policy struct {
	// Как часто запускается затухание баллов
	TickInterval time.Duration
	// На сколько баллов уменьшаем за тик
	DecayAmount int
	// Таблица порогов, по возрастанию баллов
	Thresholds []Threshold
	// Тексты предупреждений по статусам
	Messages map[Tier]string
}

// DefaultPolicy возвращает политику по умолчанию:
// затухание каждые 15 минут на 10 баллов, пороги 300/500/1000.
func DefaultPolicy() Policy {
	return NewPolicy(15*time.Minute, 10, 300, 500, 1000)
}

// NewPolicy собирает политику из настроек.
func NewPolicy(tick time.Duration, decay, flagAt, riskAt, banAt int) Policy {
	warn := fmt.Sprintf(
		"Вы накопили значительное количество нарушений. При достижении %d баллов вы будете забанены.", banAt)
	return Policy{
		TickInterval: tick,
		DecayAmount:  decay,
		Thresholds: []Threshold{
			{0, TierActive},
			{flagAt, TierFlagged},
			{riskAt, TierRiskingBan},
			{banAt, TierBanned},
		},
		Messages: map[Tier]string{
			TierFlagged:    warn,
			TierRiskingBan: warn,
			TierBanned:     "За систематические нарушения правил вы забанены в чате.",
		},
	}
}

// Evaluate возвращает статус для данного количества баллов: статус самого
// высокого порога, не превышающего points. Ровно на пороге — уже новый статус.
// Чистая функция, без побочных эффектов.
func (p Policy) Evaluate(points int) Tier {
	tier := TierActive
	for _, th := range p.Thresholds {
		if points >= th.Points {
			tier = th.Tier
		}
	}
	return tier
}

// BanThreshold возвращает порог терминального статуса.
func (p Policy) BanThreshold() int {
	for _, th := range p.Thresholds {
		if th.Tier == TierBanned {
			return th.Points
		}
	}
	return 0
}

// BanReason — фиксированная причина автоматического бана.
func (p Policy) BanReason() string {
	return fmt.Sprintf("Превышен лимит баллов нарушений (%d)", p.BanThreshold())
}
