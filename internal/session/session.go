package session

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vestake/vestake/internal/chain"
	"github.com/vestake/vestake/internal/logging"
)

// Session is the process-wide wallet/contract context. It never connects
// on its own; callers invoke Connect explicitly.
type Session struct {
	connector Connector
	watchCfg  WatcherConfig

	mu      sync.RWMutex
	conn    *Connection
	watcher *WalletWatcher

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Session
type Option func(*Session)

// WithWatcher enables wallet-side event detection while connected
func WithWatcher(cfg WatcherConfig) Option {
	return func(s *Session) {
		s.watchCfg = cfg
	}
}

// New creates a disconnected session
func New(connector Connector, opts ...Option) *Session {
	s := &Session{
		connector: connector,
		subs:      make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect obtains a new Connection. On failure the previous state is kept
// and the error returned unchanged.
func (s *Session) Connect(ctx context.Context) error {
	conn, err := s.connector.Connect(ctx)
	if err != nil {
		logging.Debug("connect failed", logging.Component("session"), logging.Err(err))
		return err
	}

	s.mu.Lock()
	oldConn, oldWatcher := s.conn, s.watcher
	s.conn = conn
	s.watcher = nil
	if s.watchCfg.WatchKeystore || s.watchCfg.PollInterval > 0 {
		w := NewWalletWatcher(s.watchCfg, conn, func(ev Event) {
			s.handleWalletEvent(conn, ev)
		})
		if err := w.Start(); err != nil {
			logging.Warn("wallet watcher failed to start", logging.Component("session"), logging.Err(err))
		} else {
			s.watcher = w
		}
	}
	s.mu.Unlock()

	if oldWatcher != nil {
		oldWatcher.Stop()
	}
	oldConn.Close()

	logging.Info("wallet connected", logging.Component("session"), logging.Account(conn.Account), "mock", conn.Mock)
	s.emit(Event{Type: EventConnected, Account: conn.Account})
	return nil
}

// Disconnect clears the connection. It performs no on-chain action and is
// safe to call when already disconnected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	conn, w := s.conn, s.watcher
	s.conn, s.watcher = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	if w != nil {
		w.Stop()
	}
	conn.Close()

	logging.Info("wallet disconnected", logging.Component("session"), logging.Account(conn.Account))
	s.emit(Event{Type: EventDisconnected, Account: conn.Account, Reason: "user disconnected"})
}

// handleWalletEvent runs on a watcher goroutine. Events from a connection
// that has since been replaced are dropped.
func (s *Session) handleWalletEvent(from *Connection, ev Event) {
	s.mu.Lock()
	if s.conn != from {
		s.mu.Unlock()
		return
	}
	w := s.watcher
	s.conn, s.watcher = nil, nil
	s.mu.Unlock()

	if w != nil {
		w.stopAsync()
	}
	from.Close()

	if ev.Type == EventDisconnected {
		ev.Account = from.Account
	}
	s.emit(ev)
}

// Subscribe registers fn for session events and returns its cancel func
func (s *Session) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Session) emit(ev Event) {
	s.subsMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Connection returns the current connection, or nil when disconnected
func (s *Session) Connection() *Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// IsConnected reports whether account and both contract handles are present
func (s *Session) IsConnected() bool {
	return s.Connection() != nil
}

// Account returns the connected account, or the zero address
func (s *Session) Account() common.Address {
	if conn := s.Connection(); conn != nil {
		return conn.Account
	}
	return common.Address{}
}

// TokenContract returns the token handle, or nil when disconnected
func (s *Session) TokenContract() *chain.TokenContract {
	if conn := s.Connection(); conn != nil {
		return conn.Token
	}
	return nil
}

// StakingContract returns the staking handle, or nil when disconnected
func (s *Session) StakingContract() *chain.StakingContract {
	if conn := s.Connection(); conn != nil {
		return conn.Staking
	}
	return nil
}
