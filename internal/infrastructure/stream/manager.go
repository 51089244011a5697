package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/transport"
)

// Manager acquires transports, wires them to connections and tracks the live ones.
// Transport run loops are scheduled on a background errgroup so Connect never blocks.
type Manager struct {
	acquirer transport.Acquirer

	connections   map[string]*Connection
	connectionsMu sync.RWMutex

	running   bool
	runningMu sync.RWMutex

	tasks *errgroup.Group

	logger logger.Logger
}

// NewManager creates a Manager that builds transports with acquirer.
func NewManager(acquirer transport.Acquirer, log logger.Logger) *Manager {
	return &Manager{
		acquirer:    acquirer,
		connections: make(map[string]*Connection),
		tasks:       &errgroup.Group{},
		logger:      log.WithField("component", "stream_manager"),
	}
}

// Start allows Connect calls.
func (m *Manager) Start(ctx context.Context) error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if m.running {
		return fmt.Errorf("stream manager is already running")
	}
	m.tasks = &errgroup.Group{}
	m.running = true

	m.logger.Info("Stream manager started")
	return nil
}

// Stop closes every connection and waits for their run loops, bounded by ctx.
func (m *Manager) Stop(ctx context.Context) error {
	m.runningMu.Lock()
	if !m.running {
		m.runningMu.Unlock()
		return nil
	}
	m.running = false
	tasks := m.tasks
	connections := m.GetConnections()
	m.runningMu.Unlock()

	for _, conn := range connections {
		if err := conn.Close(); err != nil {
			m.logger.Errorf("Failed to close connection %s: %v", conn.ID(), err)
		}
		m.remove(conn.ID())
	}

	done := make(chan error, 1)
	go func() { done <- tasks.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("wait for stream tasks: %w", ctx.Err())
	}

	m.logger.Info("Stream manager stopped")
	return nil
}

// IsRunning returns true between Start and Stop.
func (m *Manager) IsRunning() bool {
	m.runningMu.RLock()
	defer m.runningMu.RUnlock()
	return m.running
}

// Connect acquires a transport for address and registers handler against its open,
// message and error notifications. Acquisition failures are returned as
// *AcquisitionError before anything is scheduled or delivered. On success the returned
// connection is Connecting and notifications arrive later, driven by the transport.
func (m *Manager) Connect(address string, handler Handler) (*Connection, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	m.runningMu.RLock()
	defer m.runningMu.RUnlock()

	if !m.running {
		return nil, ErrManagerNotRunning
	}

	t, err := m.acquirer.Acquire(address)
	if err != nil {
		m.logger.Warnf("Failed to acquire transport for %q: %v", address, err)
		return nil, &AcquisitionError{Address: address, Err: err}
	}

	conn := newConnection(uuid.NewString(), address, t, handler, m.logger)

	m.connectionsMu.Lock()
	m.connections[conn.ID()] = conn
	m.connectionsMu.Unlock()

	go func() {
		<-conn.Done()
		m.remove(conn.ID())
	}()

	if r, ok := t.(transport.Runner); ok {
		m.tasks.Go(func() error {
			conn.terminate(r.Run())
			return nil
		})
	}

	m.logger.Infof("Connection %s created for %s", conn.ID(), address)
	return conn, nil
}

// GetConnection returns a live connection by ID.
func (m *Manager) GetConnection(id string) (*Connection, bool) {
	m.connectionsMu.RLock()
	defer m.connectionsMu.RUnlock()

	conn, ok := m.connections[id]
	return conn, ok
}

// GetConnections returns the live connections, oldest first.
func (m *Manager) GetConnections() []*Connection {
	m.connectionsMu.RLock()
	connections := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		connections = append(connections, conn)
	}
	m.connectionsMu.RUnlock()

	sort.Slice(connections, func(i, j int) bool {
		return connections[i].CreatedAt().Before(connections[j].CreatedAt())
	})
	return connections
}

// ConnectionCount returns the number of live connections.
func (m *Manager) ConnectionCount() int {
	m.connectionsMu.RLock()
	defer m.connectionsMu.RUnlock()
	return len(m.connections)
}

// Disconnect closes the connection with the given ID.
func (m *Manager) Disconnect(id string) error {
	conn, ok := m.GetConnection(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close connection %s: %w", id, err)
	}
	m.remove(id)
	return nil
}

func (m *Manager) remove(id string) {
	m.connectionsMu.Lock()
	_, ok := m.connections[id]
	delete(m.connections, id)
	m.connectionsMu.Unlock()

	if ok {
		m.logger.Infof("Connection %s removed", id)
	}
}
