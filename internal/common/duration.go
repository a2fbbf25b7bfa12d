// Package common — duration.go содержит разбор и форматирование
// длительностей для команд модерации и уведомлений.
package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration разбирает длительность вида "30s", "10m", "2h", "1d".
// Особое значение "0" означает бессрочно и возвращает нулевую длительность.
//
// Примеры:
//
//	ParseDuration("10m") → 10 минут
//	ParseDuration("1d")  → 24 часа
//	ParseDuration("0")   → 0 (бессрочно)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("пустая длительность")
	}
	if s == "0" {
		return 0, nil
	}

	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("некорректная длительность: %q", s)
	}

	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("неизвестная единица длительности: %q", s)
	}
}

// FormatDuration форматирует длительность в читабельную строку,
// максимум две единицы: "2 часа 30 минут", "1 день 6 часов", "45 секунд".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 секунд"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	parts := make([]string, 0, 2)
	switch {
	case days > 0:
		parts = append(parts, fmt.Sprintf("%d %s", days, PluralizeDays(days)))
		if hours > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", hours, PluralizeHours(hours)))
		}
	case hours > 0:
		parts = append(parts, fmt.Sprintf("%d %s", hours, PluralizeHours(hours)))
		if minutes > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", minutes, PluralizeMinutes(minutes)))
		}
	case minutes > 0:
		parts = append(parts, fmt.Sprintf("%d %s", minutes, PluralizeMinutes(minutes)))
		if seconds > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", seconds, PluralizeSeconds(seconds)))
		}
	default:
		parts = append(parts, fmt.Sprintf("%d %s", seconds, PluralizeSeconds(seconds)))
	}

	return strings.Join(parts, " ")
}

// CeilSeconds округляет длительность вверх до целых секунд.
// Остаток кулдауна 29.3s показывается пользователю как 30 секунд.
func CeilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	rounded := d.Truncate(time.Second)
	if rounded < d {
		rounded += time.Second
	}
	return rounded
}
