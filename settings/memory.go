package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
)

type memoryWatcher struct {
	ctx context.Context
	ch  chan ChangeSet
}

// MemoryStore хранит настройки в памяти процесса. Используется для пробного
// запуска без внешнего хранилища и в тестах.
type MemoryStore struct {
	area     string
	mu       sync.Mutex
	values   map[Field]json.RawMessage
	watchers map[*memoryWatcher]struct{}
}

// NewMemoryStore создаёт пустое хранилище для области area.
func NewMemoryStore(area string) *MemoryStore {
	return &MemoryStore{
		area:     area,
		values:   make(map[Field]json.RawMessage),
		watchers: make(map[*memoryWatcher]struct{}),
	}
}

func (s *MemoryStore) Area() string { return s.area }

func (s *MemoryStore) Get(ctx context.Context, fields ...Field) (Partial, error) {
	if err := ctx.Err(); err != nil {
		return Partial{}, err
	}

	s.mu.Lock()
	values := make(map[Field]json.RawMessage, len(fields))
	for _, f := range fields {
		if raw, ok := s.values[f]; ok {
			values[f] = raw
		}
	}
	s.mu.Unlock()

	return FromValues(values)
}

func (s *MemoryStore) Set(ctx context.Context, p Partial) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	values, err := p.Values()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make(map[Field]Change)
	for f, raw := range values {
		if old, ok := s.values[f]; ok && bytes.Equal(old, raw) {
			continue
		}
		s.values[f] = raw
		changes[f] = Change{NewValue: raw}
	}
	s.emit(changes)
	return nil
}

// Remove удаляет ключи; подписчики получают изменение с пустым newValue.
func (s *MemoryStore) Remove(ctx context.Context, fields ...Field) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changes := make(map[Field]Change)
	for _, f := range fields {
		if _, ok := s.values[f]; !ok {
			continue
		}
		delete(s.values, f)
		changes[f] = Change{}
	}
	s.emit(changes)
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context) (<-chan ChangeSet, error) {
	w := &memoryWatcher{ctx: ctx, ch: make(chan ChangeSet, 16)}

	s.mu.Lock()
	s.watchers[w] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, w)
		close(w.ch)
		s.mu.Unlock()
	}()

	return w.ch, nil
}

// emit вызывается под s.mu, поэтому подписчики видят изменения в порядке записи.
func (s *MemoryStore) emit(changes map[Field]Change) {
	if len(changes) == 0 {
		return
	}
	for w := range s.watchers {
		cs := ChangeSet{Area: s.area, Changes: make(map[Field]Change, len(changes))}
		for f, c := range changes {
			cs.Changes[f] = c
		}
		select {
		case w.ch <- cs:
		case <-w.ctx.Done():
		}
	}
}
