package transport

import "sync"

// Memory is an in-process transport whose notifications are raised by the caller. It
// keeps raising them after Close so tests can model notifications already in flight.
type Memory struct {
	callbacks

	address string

	mu         sync.Mutex
	closeCalls int
}

var _ Transport = (*Memory)(nil)

// NewMemory returns a Memory transport for address.
func NewMemory(address string) *Memory {
	return &Memory{address: address}
}

// Address returns the address the transport was created for.
func (m *Memory) Address() string { return m.address }

// Open raises an open notification.
func (m *Memory) Open() { m.emitOpen() }

// Message raises a message notification carrying payload.
func (m *Memory) Message(payload any) { m.emitMessage(payload) }

// Fail raises an error notification.
func (m *Memory) Fail(err error) { m.emitError(err) }

// Close counts the call and always succeeds.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()
	return nil
}

// CloseCalls reports how many times Close was invoked.
func (m *Memory) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// MemoryAcquirer hands out Memory transports for well-formed addresses and remembers them.
type MemoryAcquirer struct {
	mu         sync.Mutex
	transports []*Memory
}

var _ Acquirer = (*MemoryAcquirer)(nil)

// NewMemoryAcquirer returns an acquirer that has handed out nothing yet.
func NewMemoryAcquirer() *MemoryAcquirer {
	return &MemoryAcquirer{}
}

// Acquire validates address and returns a new Memory transport for it.
func (a *MemoryAcquirer) Acquire(address string) (Transport, error) {
	if _, err := parseAddress(address); err != nil {
		return nil, err
	}
	m := NewMemory(address)
	a.mu.Lock()
	a.transports = append(a.transports, m)
	a.mu.Unlock()
	return m, nil
}

// Last returns the most recently acquired transport, or nil.
func (a *MemoryAcquirer) Last() *Memory {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.transports) == 0 {
		return nil
	}
	return a.transports[len(a.transports)-1]
}

// Count returns how many transports were acquired.
func (a *MemoryAcquirer) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.transports)
}
