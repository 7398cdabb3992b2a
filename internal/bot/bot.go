// Package bot содержит главный модуль бота — запуск polling, маршрутизацию
// команд и проверку прав.
package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/moderation-bot/internal/bot/filters"
	"serotonyl.ru/moderation-bot/internal/bot/middleware"
	"serotonyl.ru/moderation-bot/internal/common"
	"serotonyl.ru/moderation-bot/internal/config"
	"serotonyl.ru/moderation-bot/internal/features/admin"
	"serotonyl.ru/moderation-bot/internal/features/infraction"
	"serotonyl.ru/moderation-bot/internal/features/settings"
)

const helpText = `Команды модерации (в групповом чате, для модераторов):
/infraction <пользователь> <баллы> <заметка> — выдать нарушение
/view <пользователь> — баллы, статус, заметки, журнал
/log <пользователь> — журнал нарушений
/notes <view|edit> <пользователь> [текст] — заметки модераторов
/ban <пользователь> [причина] — забанить
/unban <ID пользователя> — разбанить
/filter <add|remove|update|view> [слово] [баллы] — фильтр слов
/setup <роль> — роль модератора для чата

Вместо <пользователь> можно ответить командой на сообщение нарушителя.

В личке бота (оператор):
/login <пароль>, /logout, /forcedecay`

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter
	parser      *CommandParser
	authorizer  *Authorizer
	wordFilter  *filters.WordFilter

	infractionHandler *infraction.Handler
	settingsHandler   *settings.Handler
	adminHandler      *admin.Handler

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	authorizer *Authorizer,
	wordFilter *filters.WordFilter,
	infractionHandler *infraction.Handler,
	settingsHandler *settings.Handler,
	adminHandler *admin.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:               api,
		cfg:               cfg,
		rateLimiter:       middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		parser:            NewCommandParser(),
		authorizer:        authorizer,
		wordFilter:        wordFilter,
		infractionHandler: infractionHandler,
		settingsHandler:   settingsHandler,
		adminHandler:      adminHandler,
		inflight:          make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	if message.From == nil {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)

	// Личка: только операторские команды
	if message.Chat.IsPrivate() {
		if isCommand {
			b.routePrivateCommand(ctx, message, cmd, args)
		}
		return
	}

	// Бот работает в групповых чатах
	if !message.Chat.IsGroup() && !message.Chat.IsSuperGroup() {
		return
	}

	if !isCommand {
		// Обычное сообщение — проверяем фильтр слов
		b.wordFilter.Inspect(ctx, message)
		return
	}

	// Rate limiting только для команд: фильтр слов должен видеть всё
	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	b.routeCommand(ctx, message, cmd, args)
}

// routeCommand маршрутизирует команду группового чата.
// Все команды модерации идут через одну проверку прав.
func (b *Bot) routeCommand(ctx context.Context, message *tgbotapi.Message, cmd string, args []string) {
	chatID := message.Chat.ID
	actor := infraction.Actor{ID: message.From.ID, Name: actorName(message.From)}

	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, helpText)
		return
	case "infraction", "view", "log", "notes", "ban", "unban", "filter", "setup":
		// команды модерации, проверка прав ниже
	default:
		return
	}

	if !b.authorizer.CanModerate(ctx, chatID, message.From.ID) {
		b.sendMessage(chatID, "❌ "+common.ErrNoPermission.Error())
		return
	}

	switch cmd {
	case "infraction":
		target, rest, ok := resolveTarget(message, args)
		if !ok {
			b.sendMessage(chatID, "❌ Укажите пользователя: ответом на сообщение или его ID")
			return
		}
		b.infractionHandler.HandleInfraction(ctx, chatID, actor, target, rest)

	case "view":
		target, _, ok := resolveTarget(message, args)
		if !ok {
			b.sendMessage(chatID, "❌ Укажите пользователя: ответом на сообщение или его ID")
			return
		}
		b.infractionHandler.HandleView(ctx, chatID, target)

	case "log":
		target, _, ok := resolveTarget(message, args)
		if !ok {
			b.sendMessage(chatID, "❌ Укажите пользователя: ответом на сообщение или его ID")
			return
		}
		b.infractionHandler.HandleLog(ctx, chatID, target)

	case "notes":
		if len(args) < 1 {
			b.sendMessage(chatID, "❌ Формат: /notes <view|edit> <пользователь> [текст]")
			return
		}
		action := args[0]
		target, rest, ok := resolveTarget(message, args[1:])
		if !ok {
			b.sendMessage(chatID, "❌ Укажите пользователя: ответом на сообщение или его ID")
			return
		}
		b.infractionHandler.HandleNotes(ctx, chatID, target, append([]string{action}, rest...))

	case "ban":
		target, rest, ok := resolveTarget(message, args)
		if !ok {
			b.sendMessage(chatID, "❌ Укажите пользователя: ответом на сообщение или его ID")
			return
		}
		b.infractionHandler.HandleBan(ctx, chatID, actor, target, rest)

	case "unban":
		// Забаненный не пишет в чат, поэтому только по ID
		target, _, ok := resolveTarget(message, args)
		if !ok {
			b.sendMessage(chatID, "❌ Формат: /unban <ID пользователя>")
			return
		}
		b.infractionHandler.HandleUnban(ctx, chatID, actor, target)

	case "filter":
		b.settingsHandler.HandleFilter(ctx, chatID, args)

	case "setup":
		b.settingsHandler.HandleSetup(ctx, chatID, args)
	}
}

// routePrivateCommand маршрутизирует команды в личке бота.
func (b *Bot) routePrivateCommand(ctx context.Context, message *tgbotapi.Message, cmd string, args []string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch cmd {
	case "start", "help":
		b.sendMessage(chatID, helpText)
	case "login":
		b.adminHandler.HandleLogin(ctx, chatID, userID, args)
	case "logout":
		b.adminHandler.HandleLogout(ctx, chatID, userID)
	case "forcedecay":
		b.adminHandler.HandleForceDecay(ctx, chatID, userID)
	}
}

// resolveTarget определяет, о ком команда: автор сообщения, на которое
// ответили, либо числовой ID первым аргументом.
func resolveTarget(message *tgbotapi.Message, args []string) (int64, []string, bool) {
	if message.ReplyToMessage != nil && message.ReplyToMessage.From != nil {
		return message.ReplyToMessage.From.ID, args, true
	}
	if len(args) > 0 {
		if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
			return id, args[1:], true
		}
	}
	return 0, args, false
}

// actorName — читабельное имя для журнала нарушений.
func actorName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	return user.FirstName
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
