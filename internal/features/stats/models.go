// Package stats ведёт счётчики работы бота.
// models.go описывает снимок счётчиков.
package stats

import "time"

// Snapshot — согласованный снимок счётчиков на момент вызова.
// Карты принадлежат снимку, их можно менять без оглядки на сервис.
type Snapshot struct {
	Uptime     time.Duration
	Messages   int64            // обработанных обычных сообщений
	Commands   map[string]int64 // обработанных команд по именам
	Rejections map[string]int64 // отказов допуска по видам
	Errors     map[string]int64 // ошибок по видам
}

// CommandsTotal возвращает общее число обработанных команд.
func (s *Snapshot) CommandsTotal() int64 {
	var total int64
	for _, n := range s.Commands {
		total += n
	}
	return total
}
