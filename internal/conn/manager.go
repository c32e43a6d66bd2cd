// internal/conn/manager.go
// Owns the transport lifecycle: connect, bounded linear-backoff reconnect,
// and typed event dispatch. Knows nothing about lobby semantics.
package conn

import (
	"encoding/json"
	"sync"
	"time"

	"lobbyclient/internal/logger"
	"lobbyclient/internal/protocol"
)

// Status is the connection lifecycle state.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusClosing
	// StatusFailed is terminal: the reconnect budget is spent and only an
	// explicit Connect call leaves it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "Disconnected"
	case StatusConnecting:
		return "Connecting"
	case StatusConnected:
		return "Connected"
	case StatusClosing:
		return "Closing"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Event is what subscribers receive. Frame carries the raw inbound frame
// for protocol events and is nil for lifecycle events.
type Event struct {
	Kind  protocol.EventKind
	Frame []byte
	Err   error
}

// Handler consumes events. Handlers run sequentially in registration order;
// a panicking handler is logged and does not affect its siblings.
type Handler func(Event)

// HandlerID identifies a subscription for Unsubscribe.
type HandlerID uint64

type subscriber struct {
	id HandlerID
	fn Handler
}

// Manager maintains one logical connection to the lobby server.
type Manager struct {
	dialer Dialer
	log    *logger.Logger

	mu           sync.Mutex
	status       Status
	url          string
	conn         Conn
	gen          uint64 // bumped whenever pending dial/retry callbacks become stale
	closeFired   bool
	attempts     int
	maxAttempts  int
	baseInterval time.Duration
	retryTimer   *time.Timer
	nextID       HandlerID
	handlers     map[protocol.EventKind][]subscriber
}

// NewManager returns a disconnected manager. maxAttempts bounds automatic
// reconnects per outage; baseInterval scales linearly with the attempt
// number.
func NewManager(dialer Dialer, maxAttempts int, baseInterval time.Duration, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.New("conn")
	}
	return &Manager{
		dialer:       dialer,
		log:          log,
		status:       StatusDisconnected,
		maxAttempts:  maxAttempts,
		baseInterval: baseInterval,
		handlers:     make(map[protocol.EventKind][]subscriber),
	}
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect starts a connect cycle toward url. It is a no-op while already
// Connecting or Connected. Calling it from Disconnected or Failed resets
// the reconnect budget and cancels any pending retry timer.
func (m *Manager) Connect(url string) {
	m.mu.Lock()
	if m.status == StatusConnecting || m.status == StatusConnected || m.status == StatusClosing {
		m.mu.Unlock()
		return
	}
	m.stopRetryTimerLocked()
	m.url = url
	m.attempts = 0
	m.startDialLocked()
	m.mu.Unlock()
}

// Disconnect closes the connection (or cancels a pending dial or retry)
// and suppresses automatic reconnection. The close event still fires once
// for an established connection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopRetryTimerLocked()
	switch m.status {
	case StatusConnected:
		m.status = StatusClosing
		c := m.conn
		m.mu.Unlock()
		// The read loop observes the close error and finishes the cycle.
		c.Close()
	case StatusClosing:
		m.mu.Unlock()
	default:
		m.gen++
		m.status = StatusDisconnected
		m.attempts = 0
		m.mu.Unlock()
	}
}

// Send serializes the command and writes it out. It reports false and
// drops the command unless the manager is Connected; there is no outbound
// queue.
func (m *Manager) Send(cmd protocol.Command) bool {
	m.mu.Lock()
	if m.status != StatusConnected || m.conn == nil {
		m.mu.Unlock()
		m.log.Warnf("not connected, dropping command %q", cmd.Type)
		return false
	}
	c := m.conn
	m.mu.Unlock()

	payload, err := json.Marshal(cmd)
	if err != nil {
		m.log.Errorf("marshal command %q: %v", cmd.Type, err)
		return false
	}
	if err := c.WriteMessage(payload); err != nil {
		m.log.Errorf("write command %q: %v", cmd.Type, err)
		return false
	}
	return true
}

// Subscribe registers a handler for an event kind and returns its ID.
func (m *Manager) Subscribe(kind protocol.EventKind, fn Handler) HandlerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.handlers[kind] = append(m.handlers[kind], subscriber{id: id, fn: fn})
	return id
}

// Unsubscribe removes a handler. Unknown or already-removed IDs are a
// no-op.
func (m *Manager) Unsubscribe(kind protocol.EventKind, id HandlerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.handlers[kind]
	for i, s := range subs {
		if s.id == id {
			m.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// startDialLocked begins a new connect cycle. Caller holds m.mu.
func (m *Manager) startDialLocked() {
	m.status = StatusConnecting
	m.gen++
	m.closeFired = false
	gen := m.gen
	url := m.url
	go m.dial(gen, url)
}

func (m *Manager) dial(gen uint64, url string) {
	c, err := m.dialer.Dial(url)

	m.mu.Lock()
	if gen != m.gen || m.status != StatusConnecting {
		m.mu.Unlock()
		if err == nil {
			c.Close()
		}
		return
	}
	if err != nil {
		// Construction failure behaves like an abnormal close.
		m.log.Errorf("connect to %s failed: %v", url, err)
		m.status = StatusDisconnected
		terminal := m.scheduleReconnectLocked()
		m.mu.Unlock()
		if terminal {
			m.emit(Event{Kind: protocol.EventMaxReconnectAttemptsReached})
		}
		return
	}

	m.conn = c
	m.status = StatusConnected
	m.attempts = 0
	m.mu.Unlock()

	m.log.Infof("connected to %s", url)
	m.emit(Event{Kind: protocol.EventOpen})
	go m.readLoop(gen, c)
}

func (m *Manager) readLoop(gen uint64, c Conn) {
	for {
		frame, err := c.ReadMessage()
		if err != nil {
			m.handleClosed(gen, err)
			return
		}
		m.handleFrame(frame)
	}
}

// handleFrame decodes the envelope discriminator and dispatches the frame
// under "message" plus its own type. Undecodable frames are dropped.
func (m *Manager) handleFrame(frame []byte) {
	kind, err := protocol.PeekType(frame)
	if err != nil {
		m.log.Warnf("dropping undecodable frame: %v", err)
		return
	}
	m.emit(Event{Kind: protocol.EventMessage, Frame: frame})
	if kind != "" {
		m.emit(Event{Kind: kind, Frame: frame})
	}
}

func (m *Manager) handleClosed(gen uint64, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	wasClosing := m.status == StatusClosing
	clean := wasClosing || isCleanClose(err)
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	fireClose := !m.closeFired
	m.closeFired = true
	m.status = StatusDisconnected

	var terminal bool
	if wasClosing {
		// Only a caller-initiated disconnect resets the budget.
		m.attempts = 0
	} else if !clean {
		terminal = m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	if !clean {
		m.emit(Event{Kind: protocol.EventError, Err: err})
	}
	if fireClose {
		m.log.Infof("connection closed: %v", err)
		m.emit(Event{Kind: protocol.EventClose, Err: err})
	}
	if terminal {
		m.log.Error("max reconnect attempts reached")
		m.emit(Event{Kind: protocol.EventMaxReconnectAttemptsReached})
	}
}

// scheduleReconnectLocked applies the backoff policy. It returns true when
// the budget is exhausted, in which case the caller emits the terminal
// event after unlocking. Caller holds m.mu.
func (m *Manager) scheduleReconnectLocked() bool {
	m.attempts++
	if m.attempts > m.maxAttempts {
		m.status = StatusFailed
		return true
	}
	delay := m.baseInterval * time.Duration(m.attempts)
	gen := m.gen
	m.log.Infof("reconnecting in %v (attempt %d/%d)", delay, m.attempts, m.maxAttempts)
	m.retryTimer = time.AfterFunc(delay, func() { m.retry(gen) })
	return false
}

func (m *Manager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.status != StatusDisconnected {
		m.mu.Unlock()
		return
	}
	m.retryTimer = nil
	m.startDialLocked()
	m.mu.Unlock()
}

func (m *Manager) stopRetryTimerLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

// emit dispatches over a snapshot of the handler list, so handlers may
// subscribe or unsubscribe mid-dispatch without corrupting iteration.
func (m *Manager) emit(ev Event) {
	m.mu.Lock()
	subs := make([]subscriber, len(m.handlers[ev.Kind]))
	copy(subs, m.handlers[ev.Kind])
	m.mu.Unlock()
	for _, s := range subs {
		m.invoke(s, ev)
	}
}

func (m *Manager) invoke(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Errorf("handler for %q panicked: %v", ev.Kind, r)
		}
	}()
	s.fn(ev)
}
