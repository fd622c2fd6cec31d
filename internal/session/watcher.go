package session

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fsnotify/fsnotify"

	"github.com/vestake/vestake/internal/identity"
	"github.com/vestake/vestake/internal/logging"
	"github.com/vestake/vestake/internal/util"
)

const chainPollTimeout = 10 * time.Second

// ChainIDReader reports the chain the RPC endpoint currently serves
type ChainIDReader interface {
	NetworkChainID(ctx context.Context) (*big.Int, error)
}

// WatcherConfig controls which wallet-side changes are detected
type WatcherConfig struct {
	WatchKeystore   bool
	PollInterval    time.Duration // 0 disables chain polling
	MaxPollFailures int
}

// WalletWatcher turns keystore edits and chain switches into session events.
// It fires at most one event; the session tears the connection down in response.
type WalletWatcher struct {
	config      WatcherConfig
	keystoreDir string
	account     common.Address
	chain       ChainIDReader
	chainID     *big.Int
	emit        func(Event)

	fired   atomic.Bool
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWalletWatcher creates a watcher for conn. emit is called from a watcher goroutine.
func NewWalletWatcher(config WatcherConfig, conn *Connection, emit func(Event)) *WalletWatcher {
	return &WalletWatcher{
		config:      config,
		keystoreDir: conn.KeystoreDir,
		account:     conn.Account,
		chain:       conn.Chain,
		chainID:     conn.ChainID,
		emit:        emit,
	}
}

// Start begins watching. A keystore directory that cannot be watched is
// logged and skipped; chain polling still runs.
func (w *WalletWatcher) Start() error {
	if w.running.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running.Store(true)

	if w.config.WatchKeystore && w.keystoreDir != "" {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			logging.Warn("keystore watch unavailable", logging.Component("session"), logging.Err(err))
		} else if err := fsw.Add(w.keystoreDir); err != nil {
			fsw.Close()
			logging.Warn("keystore watch unavailable", logging.Component("session"), "dir", w.keystoreDir, logging.Err(err))
		} else {
			w.wg.Add(1)
			util.SafeGoWithName("keystore-watcher", func() {
				defer w.wg.Done()
				w.watchKeystore(ctx, fsw)
			})
		}
	}

	if w.config.PollInterval > 0 && w.chain != nil && w.chainID != nil {
		w.wg.Add(1)
		util.SafeGoWithName("chain-poller", func() {
			defer w.wg.Done()
			w.pollChain(ctx)
		})
	}

	return nil
}

// Stop cancels watching and waits for the goroutines to exit
func (w *WalletWatcher) Stop() {
	if !w.running.Swap(false) {
		return
	}
	w.cancel()
	w.wg.Wait()
}

// stopAsync cancels without waiting; used from inside a watcher goroutine
func (w *WalletWatcher) stopAsync() {
	if !w.running.Swap(false) {
		return
	}
	w.cancel()
}

func (w *WalletWatcher) fire(ev Event) {
	if w.fired.Swap(true) {
		return
	}
	logging.Info("wallet event", logging.Component("session"), "event", ev.Type.String(), "reason", ev.Reason)
	w.emit(ev)
}

func (w *WalletWatcher) watchKeystore(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if w.checkKeystore() {
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("keystore watch error", logging.Component("session"), logging.Err(err))
		}
	}
}

// checkKeystore reports whether an event fired
func (w *WalletWatcher) checkKeystore() bool {
	addr, ok := identity.PrimaryAccount(w.keystoreDir)
	switch {
	case !ok:
		w.fire(Event{Type: EventDisconnected, Reason: "wallet removed from keystore"})
		return true
	case addr != w.account:
		w.fire(Event{Type: EventAccountChanged, Account: addr, Reason: "keystore account changed"})
		return true
	}
	return false
}

func (w *WalletWatcher) pollChain(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pollCtx, cancel := context.WithTimeout(ctx, chainPollTimeout)
		id, err := w.chain.NetworkChainID(pollCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			logging.Debug("chain poll failed", logging.Component("session"), "failures", failures, logging.Err(err))
			if w.config.MaxPollFailures > 0 && failures >= w.config.MaxPollFailures {
				w.fire(Event{Type: EventDisconnected, Reason: "rpc endpoint unreachable"})
				return
			}
			continue
		}
		failures = 0

		if id.Cmp(w.chainID) != 0 {
			w.fire(Event{Type: EventChainChanged, ChainID: id, Reason: "rpc endpoint switched chains"})
			return
		}
	}
}
