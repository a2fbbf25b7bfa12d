// Package stats — service.go содержит счётчики в памяти.
// Счётчики живут в процессе и обнуляются на рестарте.
package stats

import (
	"sync"
	"time"
)

// Service копит счётчики работы бота. Безопасен для параллельных вызовов.
type Service struct {
	mu         sync.Mutex
	startedAt  time.Time
	messages   int64
	commands   map[string]int64
	rejections map[string]int64
	errors     map[string]int64
	now        func() time.Time
}

// NewService создаёт сервис счётчиков с отсчётом аптайма от текущего момента.
func NewService() *Service {
	return &Service{
		startedAt:  time.Now(),
		commands:   make(map[string]int64),
		rejections: make(map[string]int64),
		errors:     make(map[string]int64),
		now:        time.Now,
	}
}

// MessageSeen засчитывает обработанное обычное сообщение.
func (s *Service) MessageSeen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages++
}

// CommandProcessed засчитывает допущенную команду.
func (s *Service) CommandProcessed(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name]++
}

// RejectionIssued засчитывает отказ допуска.
func (s *Service) RejectionIssued(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections[kind]++
}

// ErrorOccurred засчитывает ошибку обработки.
func (s *Service) ErrorOccurred(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors[kind]++
}

// Snapshot возвращает копию счётчиков на текущий момент.
func (s *Service) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Uptime:     s.now().Sub(s.startedAt),
		Messages:   s.messages,
		Commands:   make(map[string]int64, len(s.commands)),
		Rejections: make(map[string]int64, len(s.rejections)),
		Errors:     make(map[string]int64, len(s.errors)),
	}
	for k, v := range s.commands {
		snap.Commands[k] = v
	}
	for k, v := range s.rejections {
		snap.Rejections[k] = v
	}
	for k, v := range s.errors {
		snap.Errors[k] = v
	}
	return snap
}
