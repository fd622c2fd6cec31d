package session

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// geth's keystore.NewKeyStore() spawns an fsnotify watcher with no
		// Close() method.
		goleak.IgnoreTopFunction("github.com/ethereum/go-ethereum/accounts/keystore.(*watcher).loop"),
		goleak.IgnoreAnyFunction("github.com/fsnotify/fsnotify.(*Watcher).readEvents"),
		// keyring's Secret Service backend keeps a session bus reader alive.
		goleak.IgnoreAnyFunction("github.com/godbus/dbus.(*Conn).inWorker"),
	)
}
