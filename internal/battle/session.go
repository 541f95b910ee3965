package battle

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// startedMarker is the log entry the matchmaking watcher looks for to
// recognize fulfillment (spec.md §4.7 "Entries prefixed -battlerservice:
// drive state").
const startedMarker = "-battlerservice:started"

// Session wraps a Battle with the bookkeeping internal/matchmaking needs
// to treat it as a createable, watchable unit: a stable identifier,
// per-player readiness, and a log-entry broadcast for its watcher. Battle
// itself stays free of any matchmaking concept, matching how battle.go's
// turn loop has no notion of who proposed the match.
type Session struct {
	id    uuid.UUID
	mu    sync.Mutex
	b     *Battle
	ready map[PlayerHandle]bool

	started     bool
	subscribers []chan string
}

// NewSession wraps an already-constructed Battle for matchmaking use.
func NewSession(id uuid.UUID, b *Battle) *Session {
	return &Session{id: id, b: b, ready: make(map[PlayerHandle]bool)}
}

// UUID returns the session's stable identifier.
func (s *Session) UUID() uuid.UUID { return s.id }

// Battle exposes the underlying battle for turn execution once started.
func (s *Session) Battle() *Battle { return s.b }

// MarkReady records that player has submitted their team-preview choice
// and is ready for the battle to begin.
func (s *Session) MarkReady(player PlayerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready[player] = true
}

// Ready reports whether every player in the battle is ready to start
// (spec.md §4.7 tick rule 3 "all players are Ready in the underlying
// battle").
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.b.Players {
		if !s.ready[p.Handle] {
			return false
		}
	}
	return true
}

// Started reports whether Start has already run.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Start flips the battle live and publishes the started marker the
// matchmaking watcher waits on.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()
	s.publish(startedMarker)
	return nil
}

// Subscribe returns a channel of raw log lines, including the started
// marker, closed when ctx is done. One subscriber is expected per
// matchmaking watcher (spec.md §4.7 "at-most-once per manager").
func (s *Session) Subscribe(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 8)
	s.mu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, c := range s.subscribers {
			if c == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

func (s *Session) publish(entry string) {
	s.mu.Lock()
	subs := append([]chan string(nil), s.subscribers...)
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- entry:
		default:
		}
	}
}
