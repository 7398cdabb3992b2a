// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает тик затухания баллов: каждые N минут по ровным
// границам часа (:00, :15, :30, :45 при N=15).
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/features/infraction"
)

// ErrTickInProgress возвращается из RunNow, если тик уже идёт.
var ErrTickInProgress = errors.New("тик затухания уже выполняется")

// Sweeper — один проход затухания. Реализуется infraction.Service.
type Sweeper interface {
	DecaySweep(ctx context.Context) (infraction.DecaySummary, error)
}

// Scheduler управляет фоновым затуханием баллов.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	interval time.Duration

	// Защита от наложения тиков: медленный скан не должен пересекаться
	// со следующим по расписанию, а ручной /forcedecay участвует
	// в той же дисциплине.
	running atomic.Bool
}

// NewScheduler создаёт планировщик затухания.
// Интервал должен делить час нацело (это проверяет config.Validate),
// тогда cron-выражение "*/N" само выравнивает первый запуск
// на ровную границу.
func NewScheduler(sweeper Sweeper, interval time.Duration) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		sweeper:  sweeper,
		interval: interval,
	}
}

// Start запускает расписание. Вызывается после того, как приложение
// готово (БД подключена, бот авторизован) — до этого тики не идут.
func (s *Scheduler) Start(ctx context.Context) error {
	minutes := int(s.interval.Minutes())
	spec := fmt.Sprintf("*/%d * * * *", minutes)

	_, err := s.cron.AddFunc(spec, func() {
		if !s.running.CompareAndSwap(false, true) {
			log.Warn("[CRON] Предыдущий тик затухания ещё идёт, пропускаем")
			return
		}
		defer s.running.Store(false)
		s.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("ошибка настройки расписания: %w", err)
	}

	s.cron.Start()
	log.Infof("Планировщик затухания запущен (каждые %d мин)", minutes)
	return nil
}

// RunNow синхронно выполняет один тик вне расписания (команда /forcedecay).
// Использует тот же замок, что и плановые тики.
func (s *Scheduler) RunNow(ctx context.Context) (infraction.DecaySummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return infraction.DecaySummary{}, ErrTickInProgress
	}
	defer s.running.Store(false)

	log.Info("[CRON] Ручной запуск тика затухания")
	return s.sweeper.DecaySweep(ctx)
}

// Stop останавливает планировщик: новые тики не планируются,
// идущий тик дорабатывает (или прерывается по отменённому контексту).
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик затухания остановлен")
}

// tick выполняет один плановый проход затухания.
func (s *Scheduler) tick(ctx context.Context) {
	log.Debug("[CRON] Тик затухания")

	summary, err := s.sweeper.DecaySweep(ctx)
	if err != nil {
		// Ошибка всего прохода (скан не удался или shutdown).
		// Отдельные записи сервис уже пропустил и залогировал сам.
		log.WithError(err).Error("[CRON] Тик затухания не прошёл")
		return
	}

	log.WithFields(log.Fields{
		"scanned": summary.Scanned,
		"decayed": summary.Decayed,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}).Info("[CRON] Тик затухания завершён")
}
