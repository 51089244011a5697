package facade

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-stream-listener/internal/infrastructure/feed"
	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/stream"
)

// Policy decides when a subscription stops listening. The zero Policy never stops.
type Policy struct {
	StopOn      string `json:"stop_on,omitempty"`
	MaxEvents   int    `json:"max_events,omitempty"`
	StopOnError bool   `json:"stop_on_error,omitempty"`
}

// Decide is called with the n-th delivered event.
func (p Policy) Decide(ev stream.Event, n int) stream.ControlFlow {
	switch {
	case p.MaxEvents > 0 && n >= p.MaxEvents:
		return stream.Stop
	case p.StopOn != "" && ev.Kind == stream.KindMessage && strings.TrimSpace(ev.Body) == p.StopOn:
		return stream.Stop
	case p.StopOnError && ev.Kind == stream.KindError:
		return stream.Stop
	}
	return stream.Continue
}

// Subscription is a named upstream connection whose events are recorded in a feed.
type Subscription struct {
	ID        string
	Name      string
	Address   string
	Policy    Policy
	CreatedAt time.Time

	conn *stream.Connection
	feed *feed.Feed
}

// State returns the state of the underlying connection.
func (s *Subscription) State() stream.State { return s.conn.State() }

// Delivered returns how many events the subscription's handler saw.
func (s *Subscription) Delivered() int { return s.conn.Delivered() }

// Feed returns the recorded events.
func (s *Subscription) Feed() *feed.Feed { return s.feed }

// Done is closed once the connection is closed.
func (s *Subscription) Done() <-chan struct{} { return s.conn.Done() }

// StreamApplicationService opens named subscriptions on a Manager and keeps them
// listed until they are deleted.
type StreamApplicationService struct {
	manager     *stream.Manager
	historySize int
	logger      logger.Logger

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewStreamApplicationService creates a service whose feeds keep historySize records.
func NewStreamApplicationService(manager *stream.Manager, historySize int, log logger.Logger) *StreamApplicationService {
	return &StreamApplicationService{
		manager:     manager,
		historySize: historySize,
		logger:      log.WithField("component", "stream_service"),
		subs:        make(map[string]*Subscription),
	}
}

// Open connects to address and records every event until policy says stop. The
// subscription stays listed after its connection closes so its history can be read.
func (s *StreamApplicationService) Open(name, address string, policy Policy) (*Subscription, error) {
	f := feed.New(s.historySize)

	delivered := 0
	handler := func(ev stream.Event) stream.ControlFlow {
		f.Publish(ev)
		delivered++
		return policy.Decide(ev, delivered)
	}

	conn, err := s.manager.Connect(address, handler)
	if err != nil {
		f.Close()
		return nil, err
	}

	if name == "" {
		name = conn.ID()
	}
	sub := &Subscription{
		ID:        conn.ID(),
		Name:      name,
		Address:   address,
		Policy:    policy,
		CreatedAt: conn.CreatedAt(),
		conn:      conn,
		feed:      f,
	}

	s.mu.Lock()
	s.subs[sub.ID] = sub
	s.mu.Unlock()

	go func() {
		<-conn.Done()
		f.Close()
		s.logger.Infof("Subscription %s (%s) finished after %d events", sub.Name, sub.ID, conn.Delivered())
	}()

	s.logger.Infof("Subscription %s (%s) opened for %s", sub.Name, sub.ID, address)
	return sub, nil
}

// Get returns the subscription with the given ID.
func (s *StreamApplicationService) Get(id string) (*Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[id]
	return sub, ok
}

// List returns all subscriptions, oldest first.
func (s *StreamApplicationService) List() []*Subscription {
	s.mu.RLock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs
}

// Close stops the subscription and forgets it.
func (s *StreamApplicationService) Close(id string) error {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", stream.ErrNotFound, id)
	}
	if err := sub.conn.Close(); err != nil {
		return fmt.Errorf("close subscription %s: %w", id, err)
	}
	sub.feed.Close()
	return nil
}

// IsRunning reports whether the manager accepts new connections.
func (s *StreamApplicationService) IsRunning() bool {
	return s.manager.IsRunning()
}

// ConnectionCount returns the number of live upstream connections.
func (s *StreamApplicationService) ConnectionCount() int {
	return s.manager.ConnectionCount()
}
