package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	accountA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	accountB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type fakeConnector struct {
	mu     sync.Mutex
	next   []*Connection
	err    error
	closed atomic.Int32
}

func (f *fakeConnector) Connect(context.Context) (*Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.next) == 0 {
		return nil, errors.New("no connection queued")
	}
	conn := f.next[0]
	f.next = f.next[1:]
	conn.closeFn = func() { f.closed.Add(1) }
	return conn, nil
}

func (f *fakeConnector) queue(conns ...*Connection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = append(f.next, conns...)
}

type recorder struct {
	ch chan Event
}

func newRecorder(s *Session) (*recorder, func()) {
	r := &recorder{ch: make(chan Event, 16)}
	return r, s.Subscribe(func(ev Event) { r.ch <- ev })
}

func (r *recorder) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for session event")
		return Event{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case ev := <-r.ch:
		t.Fatalf("unexpected event %s", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSession_StartsDisconnected(t *testing.T) {
	s := New(&fakeConnector{})
	if s.IsConnected() {
		t.Fatal("expected new session to be disconnected")
	}
	if s.Account() != (common.Address{}) || s.TokenContract() != nil || s.StakingContract() != nil {
		t.Error("expected empty accessors before connect")
	}
}

func TestSession_ConnectAndDisconnect(t *testing.T) {
	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA})
	s := New(fc)
	rec, unsub := newRecorder(s)
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.IsConnected() || s.Account() != accountA {
		t.Fatalf("expected connected as %s", accountA.Hex())
	}
	if ev := rec.next(t); ev.Type != EventConnected || ev.Account != accountA {
		t.Errorf("unexpected event %+v", ev)
	}

	s.Disconnect()
	if s.IsConnected() {
		t.Fatal("expected disconnected")
	}
	if ev := rec.next(t); ev.Type != EventDisconnected {
		t.Errorf("unexpected event %+v", ev)
	}
	if fc.closed.Load() != 1 {
		t.Errorf("expected connection closed once, got %d", fc.closed.Load())
	}

	// Idempotent
	s.Disconnect()
	rec.none(t)
	if fc.closed.Load() != 1 {
		t.Errorf("expected no second close, got %d", fc.closed.Load())
	}
}

func TestSession_ConnectFailureKeepsState(t *testing.T) {
	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA})
	s := New(fc)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	fc.err = ErrUserRejected
	err := s.Connect(context.Background())
	if !errors.Is(err, ErrUserRejected) {
		t.Fatalf("expected ErrUserRejected, got %v", err)
	}
	if !s.IsConnected() || s.Account() != accountA {
		t.Error("expected previous connection to survive a failed connect")
	}
	s.Disconnect()
}

func TestSession_ReconnectReplacesConnection(t *testing.T) {
	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA}, &Connection{Account: accountB})
	s := New(fc)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Account() != accountB {
		t.Errorf("expected %s, got %s", accountB.Hex(), s.Account().Hex())
	}
	if fc.closed.Load() != 1 {
		t.Errorf("expected replaced connection to be closed, got %d closes", fc.closed.Load())
	}
	s.Disconnect()
}

func TestSession_Unsubscribe(t *testing.T) {
	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA})
	s := New(fc)
	rec, unsub := newRecorder(s)
	unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.none(t)
	s.Disconnect()
}

func TestSession_StaleWalletEventIgnored(t *testing.T) {
	fc := &fakeConnector{}
	first := &Connection{Account: accountA}
	fc.queue(first, &Connection{Account: accountB})
	s := New(fc)

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	s.handleWalletEvent(first, Event{Type: EventDisconnected})
	if !s.IsConnected() || s.Account() != accountB {
		t.Error("expected event from replaced connection to be ignored")
	}
	s.Disconnect()
}

func writeKeyFile(t *testing.T, dir, name string, addr common.Address) {
	t.Helper()
	body := fmt.Sprintf(`{"address":"%s","version":3}`, strings.TrimPrefix(strings.ToLower(addr.Hex()), "0x"))
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestSession_KeystoreRemovalDisconnects(t *testing.T) {
	dir := t.TempDir()
	writeKeyFile(t, dir, "UTC--2024-01-01--a1", accountA)

	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA, KeystoreDir: dir})
	s := New(fc, WithWatcher(WatcherConfig{WatchKeystore: true}))
	rec, unsub := newRecorder(s)
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.next(t) // connected

	if err := os.Remove(filepath.Join(dir, "UTC--2024-01-01--a1")); err != nil {
		t.Fatal(err)
	}

	ev := rec.next(t)
	if ev.Type != EventDisconnected || ev.Account != accountA {
		t.Errorf("expected disconnect for %s, got %+v", accountA.Hex(), ev)
	}
	if s.IsConnected() {
		t.Error("expected session to clear its connection")
	}
	if fc.closed.Load() != 1 {
		t.Errorf("expected connection closed, got %d", fc.closed.Load())
	}
}

func TestSession_KeystoreAccountChange(t *testing.T) {
	dir := t.TempDir()
	writeKeyFile(t, dir, "UTC--2024-06-01--a1", accountA)

	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA, KeystoreDir: dir})
	s := New(fc, WithWatcher(WatcherConfig{WatchKeystore: true}))
	rec, unsub := newRecorder(s)
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.next(t)

	// Sorts first, so it becomes the primary account
	writeKeyFile(t, dir, "UTC--2024-01-01--b2", accountB)

	ev := rec.next(t)
	if ev.Type != EventAccountChanged || ev.Account != accountB {
		t.Errorf("expected account change to %s, got %+v", accountB.Hex(), ev)
	}
	if s.IsConnected() {
		t.Error("expected session to clear its connection")
	}
}

type fakeChain struct {
	id   atomic.Int64
	fail atomic.Bool
}

func (f *fakeChain) NetworkChainID(context.Context) (*big.Int, error) {
	if f.fail.Load() {
		return nil, errors.New("connection refused")
	}
	return big.NewInt(f.id.Load()), nil
}

func TestSession_ChainChange(t *testing.T) {
	fch := &fakeChain{}
	fch.id.Store(31337)

	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA, Chain: fch, ChainID: big.NewInt(31337)})
	s := New(fc, WithWatcher(WatcherConfig{PollInterval: 10 * time.Millisecond, MaxPollFailures: 3}))
	rec, unsub := newRecorder(s)
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.next(t)

	fch.id.Store(84532)
	ev := rec.next(t)
	if ev.Type != EventChainChanged || ev.ChainID.Int64() != 84532 {
		t.Errorf("expected chain change to 84532, got %+v", ev)
	}
	if s.IsConnected() {
		t.Error("expected session to clear its connection")
	}
	rec.none(t)
}

func TestSession_UnreachableRPCDisconnects(t *testing.T) {
	fch := &fakeChain{}
	fch.id.Store(31337)
	fch.fail.Store(true)

	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA, Chain: fch, ChainID: big.NewInt(31337)})
	s := New(fc, WithWatcher(WatcherConfig{PollInterval: 10 * time.Millisecond, MaxPollFailures: 2}))
	rec, unsub := newRecorder(s)
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.next(t)

	if ev := rec.next(t); ev.Type != EventDisconnected || ev.Reason == "" {
		t.Errorf("expected disconnect with reason, got %+v", ev)
	}
}

func TestSession_DisconnectStopsWatcher(t *testing.T) {
	dir := t.TempDir()
	writeKeyFile(t, dir, "UTC--2024-01-01--a1", accountA)
	fch := &fakeChain{}
	fch.id.Store(1)

	fc := &fakeConnector{}
	fc.queue(&Connection{Account: accountA, KeystoreDir: dir, Chain: fch, ChainID: big.NewInt(1)})
	s := New(fc, WithWatcher(WatcherConfig{WatchKeystore: true, PollInterval: 10 * time.Millisecond}))
	rec, unsub := newRecorder(s)
	defer unsub()

	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec.next(t)

	s.Disconnect()
	rec.next(t)

	// No further events once disconnected
	fch.id.Store(2)
	os.Remove(filepath.Join(dir, "UTC--2024-01-01--a1"))
	rec.none(t)
}
