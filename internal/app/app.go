// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/bot"
	"serotonyl.ru/moderation-bot/internal/bot/filters"
	"serotonyl.ru/moderation-bot/internal/config"
	"serotonyl.ru/moderation-bot/internal/db/postgres"
	"serotonyl.ru/moderation-bot/internal/features/admin"
	"serotonyl.ru/moderation-bot/internal/features/infraction"
	"serotonyl.ru/moderation-bot/internal/features/settings"
	"serotonyl.ru/moderation-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	infractionRepo := infraction.NewRepository(pool)
	settingsRepo := settings.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	policy := infraction.NewPolicy(
		time.Duration(cfg.DecayIntervalMinutes)*time.Minute,
		cfg.DecayAmount,
		cfg.FlagThreshold,
		cfg.RiskThreshold,
		cfg.BanThreshold,
	)
	telegram := bot.NewTelegram(botAPI)
	infractionService := infraction.NewService(infractionRepo, telegram, telegram, policy)
	settingsService := settings.NewService(settingsRepo)
	adminService := admin.NewService(adminRepo, cfg)

	// === 5. Планировщик задач ===
	scheduler := jobs.NewScheduler(infractionService, policy.TickInterval)

	// === 6. Обработчики ===
	infractionHandler := infraction.NewHandler(infractionService, botAPI)
	settingsHandler := settings.NewHandler(settingsService, botAPI)
	adminHandler := admin.NewHandler(adminService, scheduler, botAPI)

	// === 7. Фильтры и авторизация ===
	wordFilter := filters.NewWordFilter(settingsService, infractionService, botAPI)
	authorizer := bot.NewAuthorizer(botAPI, settingsService)

	// === 8. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		authorizer,
		wordFilter,
		infractionHandler,
		settingsHandler,
		adminHandler,
	)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Infractions},
		{2, migration002ChatSettings},
		{3, migration003Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.
// Также доступны как .sql файлы в папке migrations/.

var migration001Infractions = `
CREATE TABLE IF NOT EXISTS infractions (
    id BIGSERIAL PRIMARY KEY,
    chat_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    points INTEGER DEFAULT 0 CHECK (points >= 0),
    status VARCHAR(32) DEFAULT 'active',
    notes TEXT DEFAULT '',
    log JSONB DEFAULT '[]',
    last_notified_tier VARCHAR(32),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (chat_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_infractions_chat_user ON infractions(chat_id, user_id);
CREATE INDEX IF NOT EXISTS idx_infractions_positive ON infractions(chat_id, user_id) WHERE points > 0;
`

var migration002ChatSettings = `
CREATE TABLE IF NOT EXISTS chat_settings (
    chat_id BIGINT PRIMARY KEY,
    mod_role VARCHAR(64) DEFAULT '',
    filtered_words JSONB DEFAULT '{}',
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
`

var migration003Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(255) UNIQUE,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP,
    is_active BOOLEAN DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user_id ON admin_sessions(user_id);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT,
    attempt_time TIMESTAMP DEFAULT NOW(),
    success BOOLEAN DEFAULT FALSE
);
`
