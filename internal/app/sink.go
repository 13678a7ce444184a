package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avoronov/huddle/internal/domain"
)

// MessageStore durably appends one chat message.
type MessageStore interface {
	SaveMessage(ctx context.Context, m domain.ChatMessage) error
}

// Sink decouples message persistence from delivery: submissions go through
// a bounded queue drained by worker goroutines. A full queue drops the
// submission and logs — the chat relay is never back-pressured, and a store
// failure is never surfaced to the sender.
type Sink struct {
	store        MessageStore
	queue        chan domain.ChatMessage
	workers      int
	writeTimeout time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	running bool
}

func NewSink(store MessageStore, queueSize, workers int, writeTimeout time.Duration) *Sink {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &Sink{
		store:        store,
		queue:        make(chan domain.ChatMessage, queueSize),
		workers:      workers,
		writeTimeout: writeTimeout,
	}
}

func (s *Sink) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	if s.store == nil {
		log.Warn().Str("module", "app.sink").Msg("no message store configured, chat persistence disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(ctx)
		}()
	}
	log.Info().Str("module", "app.sink").Int("workers", s.workers).Int("queue", cap(s.queue)).Msg("persistence sink started")
}

// Stop drains nothing: in-flight writes finish, queued messages past the
// cancellation are dropped.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Str("module", "app.sink").Msg("persistence sink stopped")
}

// Submit hands off a message without blocking. Returns false when the
// message was dropped (no store, or queue full).
func (s *Sink) Submit(m domain.ChatMessage) bool {
	if s.store == nil {
		return false
	}
	select {
	case s.queue <- m:
		return true
	default:
		log.Warn().Str("module", "app.sink").Str("room", string(m.Room)).Str("user", string(m.Sender)).Msg("persistence queue full, message dropped")
		return false
	}
}

func (s *Sink) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.queue:
			s.save(ctx, m)
		}
	}
}

func (s *Sink) save(ctx context.Context, m domain.ChatMessage) {
	wctx := ctx
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	if err := s.store.SaveMessage(wctx, m); err != nil {
		log.Error().Err(err).Str("module", "app.sink").Str("room", string(m.Room)).Str("user", string(m.Sender)).Msg("persist message failed")
	}
}
