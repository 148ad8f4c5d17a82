package options

import (
	"sync"
	"time"
)

// StatusClearDelay задаёт, через сколько исчезает строка статуса.
const StatusClearDelay = 3 * time.Second

// Display выводит строку статуса.
type Display interface {
	Show(message string, isError bool)
	Clear()
}

// Status показывает временное сообщение и стирает его через clearAfter.
// Новое сообщение перезапускает таймер.
type Status struct {
	display    Display
	clearAfter time.Duration

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func NewStatus(display Display, clearAfter time.Duration) *Status {
	if clearAfter <= 0 {
		clearAfter = StatusClearDelay
	}
	return &Status{display: display, clearAfter: clearAfter}
}

// Show выводит сообщение. Канал закрывается, когда сообщение стёрто.
func (s *Status) Show(message string, isError bool) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil && s.timer.Stop() {
		close(s.done)
	}

	done := make(chan struct{})
	s.done = done
	s.display.Show(message, isError)
	s.timer = time.AfterFunc(s.clearAfter, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.done != done {
			// Таймер уже сработал, но сообщение успели заменить.
			close(done)
			return
		}
		s.display.Clear()
		s.timer = nil
		close(done)
	})
	return done
}
