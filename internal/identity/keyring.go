package identity

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
	"github.com/ethereum/go-ethereum/common"
)

// keyringService groups every vestake entry in the platform keyring
const keyringService = "vestake"

// ErrNoKeyringBackend is returned when the platform has no usable keyring
var ErrNoKeyringBackend = errors.New("no platform keyring available")

// keystoreItemKey names the keyring entry for one account's keystore
// password, so several wallets can keep their passwords side by side.
func keystoreItemKey(account common.Address) string {
	return "keystore:" + strings.ToLower(account.Hex())
}

// StoreWalletPassword saves account's keystore password in the platform
// keyring and returns the name of the backend that holds it.
func StoreWalletPassword(account common.Address, password string) (string, error) {
	ring, backend, err := platformKeyring()
	if err != nil {
		return "", err
	}

	item := keyring.Item{
		Key:         keystoreItemKey(account),
		Data:        []byte(password),
		Label:       "vestake " + account.Hex(),
		Description: "Keystore password for staking wallet " + account.Hex(),
	}
	if err := ring.Set(item); err != nil {
		return "", fmt.Errorf("store password in %s: %w", backend, err)
	}
	return backend, nil
}

// RetrieveWalletPassword returns account's stored password, or "" with a
// nil error when the keyring works but holds nothing for account.
func RetrieveWalletPassword(account common.Address) (string, error) {
	ring, _, err := platformKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(keystoreItemKey(account))
	switch {
	case errors.Is(err, keyring.ErrKeyNotFound):
		return "", nil
	case err != nil:
		return "", err
	}
	return string(item.Data), nil
}

// DeleteWalletPassword removes account's stored password. Removing an
// absent entry is not an error.
func DeleteWalletPassword(account common.Address) error {
	ring, _, err := platformKeyring()
	if err != nil {
		return err
	}
	if err := ring.Remove(keystoreItemKey(account)); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// platformKeyring opens the first preferred backend this build supports
func platformKeyring() (keyring.Keyring, string, error) {
	backends := supportedBackends(preferredBackends(runtime.GOOS), keyring.AvailableBackends())
	if len(backends) == 0 {
		return nil, "", fmt.Errorf("%w on %s", ErrNoKeyringBackend, runtime.GOOS)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:                    keyringService,
		AllowedBackends:                backends,
		KeychainTrustApplication:       true,
		KeychainAccessibleWhenUnlocked: true,
		KWalletAppID:                   keyringService,
		KWalletFolder:                  keyringService,
		LibSecretCollectionName:        keyringService,
		WinCredPrefix:                  keyringService,
	})
	if err != nil {
		return nil, "", fmt.Errorf("open keyring: %w", err)
	}
	return ring, backendName(backends[0]), nil
}

// preferredBackends lists the keyrings worth trying on goos, best first.
// File and pass backends are left out because they would prompt for a
// second secret.
func preferredBackends(goos string) []keyring.BackendType {
	switch goos {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend}
	case "linux", "freebsd", "openbsd":
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend}
	case "windows":
		return []keyring.BackendType{keyring.WinCredBackend}
	}
	return nil
}

// supportedBackends keeps the preferred backends compiled into this build
func supportedBackends(preferred, available []keyring.BackendType) []keyring.BackendType {
	var out []keyring.BackendType
	for _, p := range preferred {
		for _, a := range available {
			if p == a {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func backendName(b keyring.BackendType) string {
	switch b {
	case keyring.KeychainBackend:
		return "macOS Keychain"
	case keyring.SecretServiceBackend:
		return "Secret Service"
	case keyring.KWalletBackend:
		return "KWallet"
	case keyring.WinCredBackend:
		return "Windows Credential Manager"
	}
	return string(b)
}
