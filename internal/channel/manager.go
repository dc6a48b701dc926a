/*
Package channel owns the lifecycle of the outbound messaging connection.

A single goroutine consumes lifecycle events and applies them to a small state
machine, so establishment is never started twice and readers only ever see
states the transition table allows.
*/
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotReady   = errors.New("channel is not ready")
	ErrLoggedOut  = errors.New("channel session was logged out")
	ErrInvalidJID = errors.New("invalid recipient")
	ErrStopped    = errors.New("channel manager stopped")
)

const (
	DefaultReadyTimeout   = 15 * time.Second
	DefaultReconnectDelay = 3 * time.Second

	// failed reconnects back off up to this multiple of the reconnect delay
	maxBackoffFactor = 10
)

type State int

const (
	StateInit State = iota
	StateConnecting
	StateOpen
	StateClosed
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateLoggedOut:
		return "logged_out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func validTransition(from, to State) bool {
	switch from {
	case StateInit:
		return to == StateConnecting
	case StateConnecting:
		return to == StateOpen || to == StateClosed || to == StateLoggedOut
	case StateOpen:
		return to == StateClosed || to == StateLoggedOut
	case StateClosed:
		return to == StateConnecting
	}
	return false
}

type event interface{}

type connectRequest struct {
	reply chan error
}

type dialResult struct {
	session Session
	err     error
}

type sessionClosed struct {
	session Session
	reason  CloseReason
}

type reconnectDue struct{}

type Option func(*Manager)

func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.reconnectDelay = d }
}

type Manager struct {
	dialer         Dialer
	logger         *zap.Logger
	reconnectDelay time.Duration

	events chan event
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	state   State
	session Session
	reason  CloseReason

	// owned by run
	dialing  bool
	failures int
	waiters  []chan error
	timer    *time.Timer
}

// NewManager starts the event loop. Nothing is dialed until the first
// Connect or WaitUntilReady call.
func NewManager(dialer Dialer, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		dialer:         dialer,
		logger:         logger,
		reconnectDelay: DefaultReconnectDelay,
		events:         make(chan event),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.run()
	return m
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LogoutReason is set once the manager reaches StateLoggedOut.
func (m *Manager) LogoutReason() CloseReason {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reason
}

// Session returns the open session or ErrNotReady.
func (m *Manager) Session() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateOpen || m.session == nil {
		return nil, ErrNotReady
	}
	return m.session, nil
}

// Connect blocks until the channel is open. Concurrent callers share one
// establishment attempt and all receive its error.
func (m *Manager) Connect(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := m.send(ctx, connectRequest{reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// WaitUntilReady reports whether the channel opened within timeout. A
// non-positive timeout uses DefaultReadyTimeout.
func (m *Manager) WaitUntilReady(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := m.Connect(ctx); err != nil {
		m.logger.Warn("channel not ready", zap.Error(err), zap.Stringer("state", m.State()))
		return false
	}
	return true
}

func (m *Manager) SendText(ctx context.Context, jid, text string) (SendResult, error) {
	s, err := m.Session()
	if err != nil {
		return SendResult{}, err
	}
	return s.SendText(ctx, jid, text)
}

func (m *Manager) SendImage(ctx context.Context, jid string, png []byte, caption string) (SendResult, error) {
	s, err := m.Session()
	if err != nil {
		return SendResult{}, err
	}
	return s.SendImage(ctx, jid, png, caption)
}

func (m *Manager) SendMedia(ctx context.Context, jid string, media Media, caption string) (SendResult, error) {
	s, err := m.Session()
	if err != nil {
		return SendResult{}, err
	}
	return s.SendMedia(ctx, jid, media, caption)
}

// Close stops the event loop and closes any open session.
func (m *Manager) Close() error {
	m.cancel()
	<-m.done

	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()

	if s != nil {
		return s.Close()
	}
	return nil
}

func (m *Manager) send(ctx context.Context, ev event) error {
	select {
	case m.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			if m.timer != nil {
				m.timer.Stop()
			}
			for _, w := range m.waiters {
				w <- ErrStopped
			}
			return
		case ev := <-m.events:
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev event) {
	switch ev := ev.(type) {
	case connectRequest:
		m.onConnectRequest(ev)
	case dialResult:
		m.onDialResult(ev)
	case sessionClosed:
		m.onSessionClosed(ev)
	case reconnectDue:
		if m.State() == StateClosed && !m.dialing {
			m.logger.Info("reconnecting")
			m.startDial()
		}
	}
}

func (m *Manager) onConnectRequest(req connectRequest) {
	switch m.State() {
	case StateOpen:
		req.reply <- nil
	case StateLoggedOut:
		req.reply <- ErrLoggedOut
	default:
		m.waiters = append(m.waiters, req.reply)
		if !m.dialing {
			m.startDial()
		}
	}
}

func (m *Manager) startDial() {
	if !m.transition(StateConnecting) {
		return
	}
	m.dialing = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	go func() {
		s, err := m.dialer.Dial(m.ctx)
		res := dialResult{session: s, err: err}
		select {
		case m.events <- res:
		case <-m.done:
			if s != nil {
				_ = s.Close()
			}
		}
	}()
}

func (m *Manager) onDialResult(res dialResult) {
	m.dialing = false
	waiters := m.waiters
	m.waiters = nil

	if res.err != nil {
		next := StateClosed
		if errors.Is(res.err, ErrLoggedOut) {
			next = StateLoggedOut
			m.setReason(ReasonLoggedOut)
		}
		m.transition(next)
		m.logger.Error("channel establishment failed", zap.Error(res.err))
		for _, w := range waiters {
			w <- res.err
		}
		if next == StateClosed {
			m.failures++
			m.scheduleReconnect()
		}
		return
	}
	m.failures = 0

	m.mu.Lock()
	m.session = res.session
	m.mu.Unlock()
	m.transition(StateOpen)

	for _, w := range waiters {
		w <- nil
	}

	go func(s Session) {
		select {
		case reason := <-s.Closed():
			select {
			case m.events <- sessionClosed{session: s, reason: reason}:
			case <-m.done:
			}
		case <-m.done:
		}
	}(res.session)
}

func (m *Manager) onSessionClosed(ev sessionClosed) {
	m.mu.Lock()
	if m.session != ev.session {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.mu.Unlock()

	if ev.reason == ReasonLoggedOut {
		m.setReason(ev.reason)
		m.transition(StateLoggedOut)
		m.logger.Warn("session logged out; re-authentication required")
		return
	}

	m.transition(StateClosed)
	m.logger.Info("session closed", zap.String("reason", string(ev.reason)))
	m.scheduleReconnect()
}

// scheduleReconnect arms the reconnect timer, doubling the delay for each
// consecutive failed dial up to maxBackoffFactor times the base delay.
func (m *Manager) scheduleReconnect() {
	delay := m.reconnectDelay
	for i := 0; i < m.failures && delay < m.reconnectDelay*maxBackoffFactor; i++ {
		delay *= 2
	}
	delay = min(delay, m.reconnectDelay*maxBackoffFactor)

	if m.timer != nil {
		m.timer.Stop()
	}
	m.logger.Info("scheduling reconnect", zap.Duration("delay", delay), zap.Int("failures", m.failures))
	m.timer = time.AfterFunc(delay, func() {
		select {
		case m.events <- reconnectDue{}:
		case <-m.done:
		}
	})
}

func (m *Manager) setReason(r CloseReason) {
	m.mu.Lock()
	m.reason = r
	m.mu.Unlock()
}

func (m *Manager) transition(to State) bool {
	m.mu.Lock()
	from := m.state
	if !validTransition(from, to) {
		m.mu.Unlock()
		m.logger.Warn("ignoring invalid state transition", zap.Stringer("from", from), zap.Stringer("to", to))
		return false
	}
	m.state = to
	m.mu.Unlock()

	m.logger.Info("channel state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	return true
}
