package replication

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Bus is a topic-per-match broadcast channel between replicas. Delivery is
// asynchronous and ordered per publisher.
type Bus interface {
	Publish(ctx context.Context, matchID string, data []byte) error
	Subscribe(matchID string, handler func(data []byte)) (Subscription, error)
}

type Subscription interface {
	Unsubscribe() error
}

const memoryQueueLimit = 256

// MemoryBus is an in-process Bus, used when replicas share a process and in
// tests. Every subscriber has its own ordered queue so a slow handler never
// blocks the publisher. When a queue is full the oldest pending snapshot is
// discarded, so the newest one is always delivered.
type MemoryBus struct {
	mu    sync.RWMutex
	subs  map[string]map[*memorySub]struct{}
	limit int
}

func NewMemoryBus() *MemoryBus {
	return newMemoryBus(memoryQueueLimit)
}

func newMemoryBus(limit int) *MemoryBus {
	return &MemoryBus{subs: make(map[string]map[*memorySub]struct{}), limit: max(1, limit)}
}

type memorySub struct {
	bus     *MemoryBus
	matchID string

	mu      sync.Mutex
	pending [][]byte
	wake    chan struct{}

	done chan struct{}
	once sync.Once
}

func (b *MemoryBus) Publish(_ context.Context, matchID string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[matchID] {
		if sub.push(append([]byte(nil), data...), b.limit) {
			log.Warn().Str("match_id", matchID).Msg("replication subscriber queue full, discarded oldest snapshot")
		}
	}
	return nil
}

// push enqueues msg and reports whether an older message was discarded to
// make room.
func (s *memorySub) push(msg []byte, limit int) bool {
	s.mu.Lock()
	dropped := len(s.pending) >= limit
	if dropped {
		s.pending = append(s.pending[:0], s.pending[1:]...)
	}
	s.pending = append(s.pending, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return dropped
}

func (s *memorySub) pop() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil, false
	}
	msg := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return msg, true
}

func (b *MemoryBus) Subscribe(matchID string, handler func(data []byte)) (Subscription, error) {
	sub := &memorySub{
		bus:     b,
		matchID: matchID,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.subs[matchID] == nil {
		b.subs[matchID] = make(map[*memorySub]struct{})
	}
	b.subs[matchID][sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case <-sub.wake:
			}
			for {
				msg, ok := sub.pop()
				if !ok {
					break
				}
				select {
				case <-sub.done:
					return
				default:
				}
				handler(msg)
			}
		}
	}()
	return sub, nil
}
func (s *memorySub) Unsubscribe() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.matchID], s)
		if len(s.bus.subs[s.matchID]) == 0 {
			delete(s.bus.subs, s.matchID)
		}
		s.bus.mu.Unlock()
		close(s.done)
	})
	return nil
}
