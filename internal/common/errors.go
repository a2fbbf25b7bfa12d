// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Обработчики различают их через errors.Is и отправляют пользователю
// понятные сообщения вместо текста внутренней ошибки.
package common

import (
	"errors"
	"fmt"
)

// Ошибки модерации
var (
	// ErrSelfTarget — команда направлена на самого себя
	ErrSelfTarget = errors.New("нельзя применить команду к самому себе")
	// ErrTargetNotFound — целевой пользователь не найден в базе
	ErrTargetNotFound = errors.New("пользователь не найден")
	// ErrNoActiveWarning — нет активных предупреждений для снятия
	ErrNoActiveWarning = errors.New("активных предупреждений нет")
)

// Ошибки инфраструктуры
var (
	// ErrStoreUnavailable — хранилище недоступно, повторы исчерпаны
	ErrStoreUnavailable = errors.New("хранилище недоступно")
	// ErrPermissionDenied — у бота нет прав на действие в этом чате
	ErrPermissionDenied = errors.New("у бота недостаточно прав в этом чате")
)

// StoreError — окончательный отказ хранилища. Несёт имя операции
// репозитория и последнюю причину. errors.Is(err, ErrStoreUnavailable)
// для него возвращает true.
type StoreError struct {
	Op  string // имя операции, например "karma.adjust"
	Err error  // последняя причина отказа
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("хранилище: операция %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is делает StoreError эквивалентом ErrStoreUnavailable для errors.Is.
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }
