// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import "errors"

// Ошибки модерации (баллы, бан)
var (
	// ErrRecordNotFound — по пользователю нет записи в базе
	ErrRecordNotFound = errors.New("запись о пользователе не найдена")
	// ErrNoRecordForBan — бан доступен только при наличии записи о нарушениях
	ErrNoRecordForBan = errors.New("сначала выдайте нарушение, потом можно банить")
	// ErrNotBanned — пользователь и так не забанен
	ErrNotBanned = errors.New("пользователь не забанен")
)

// Ошибки фильтра слов и настроек чата
var (
	// ErrUnknownAction — действие не из списка add/remove/update/view
	ErrUnknownAction = errors.New("неизвестное действие, доступны: add, remove, update, view")
	// ErrWordRequired — для этого действия нужно указать слово
	ErrWordRequired = errors.New("укажите слово для этого действия")
	// ErrPointsRequired — укажите количество баллов для add/update
	ErrPointsRequired = errors.New("укажите количество баллов")
	// ErrWordExists — слово уже в списке фильтра
	ErrWordExists = errors.New("слово уже есть в списке фильтра")
	// ErrWordNotFound — слова нет в списке фильтра
	ErrWordNotFound = errors.New("слова нет в списке фильтра")
)

// Ошибки доступа
var (
	// ErrNoPermission — у вызывающего нет прав модератора
	ErrNoPermission = errors.New("у вас нет прав для этой команды")
	// ErrWrongPassword — неверный пароль оператора
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
