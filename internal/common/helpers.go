// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, отображаемые имена, работа с временем.
package common

import (
	"math"
	"time"
)

// pluralRu выбирает форму слова по правилам русского языка.
//
// Правила:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,4] И n%100 НЕ в [12,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralRu(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeSeconds возвращает форму слова «секунда» для фраз
// «через N …» и «на N …».
//
// Примеры:
//
//	PluralizeSeconds(1)  → "секунду"
//	PluralizeSeconds(3)  → "секунды"
//	PluralizeSeconds(11) → "секунд"
//	PluralizeSeconds(21) → "секунду"
func PluralizeSeconds(n int) string {
	return pluralRu(int64(n), "секунду", "секунды", "секунд")
}

// PluralizeMinutes возвращает форму слова «минута» для тех же фраз.
func PluralizeMinutes(n int) string {
	return pluralRu(int64(n), "минуту", "минуты", "минут")
}

// PluralizeHours возвращает правильную форму слова «час».
func PluralizeHours(n int) string {
	return pluralRu(int64(n), "час", "часа", "часов")
}

// PluralizeDays возвращает правильную форму слова «день».
func PluralizeDays(n int) string {
	return pluralRu(int64(n), "день", "дня", "дней")
}

// PluralizeWarnings возвращает правильную форму слова «предупреждение».
func PluralizeWarnings(n int) string {
	return pluralRu(int64(n), "предупреждение", "предупреждения", "предупреждений")
}

// FormatUserName возвращает отображаемое имя пользователя.
// Если есть @username — возвращает его, иначе — имя + фамилию.
func FormatUserName(username, firstName, lastName string) string {
	if username != "" {
		return "@" + username
	}
	name := firstName
	if lastName != "" {
		name += " " + lastName
	}
	return name
}

// MoscowLocation возвращает часовой пояс Москвы.
// Если база зон недоступна — фиксированный UTC+3.
func MoscowLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется в списке предупреждений и сообщениях о муте.
func FormatDateTime(t time.Time) string {
	return t.In(MoscowLocation()).Format("02.01.2006 15:04")
}
