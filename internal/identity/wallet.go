package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoWallet is returned when the keystore directory holds no account
var ErrNoWallet = errors.New("no wallet found in keystore")

// Scrypt parameters for new keystore files. Tests lower these.
var (
	scryptN = keystore.StandardScryptN
	scryptP = keystore.StandardScryptP
)

// WalletManager owns the single account in an encrypted keystore directory
type WalletManager struct {
	mu         sync.Mutex
	keystore   *keystore.KeyStore
	keyPath    string
	address    common.Address
	privateKey *ecdsa.PrivateKey
	loaded     bool
}

func openKeystore(keystoreDir string) (*keystore.KeyStore, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	return keystore.NewKeyStore(keystoreDir, scryptN, scryptP), nil
}

// LoadWalletManager loads the existing wallet from the keystore directory.
// Returns ErrNoWallet if the directory holds no account.
func LoadWalletManager(keystoreDir string) (*WalletManager, error) {
	ks, err := openKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}

	accounts := ks.Accounts()
	if len(accounts) == 0 {
		return nil, ErrNoWallet
	}

	return &WalletManager{
		keystore: ks,
		keyPath:  keystoreDir,
		address:  accounts[0].Address,
		loaded:   true,
	}, nil
}

// CreateWalletManager creates a new wallet in the keystore directory.
// Returns an error if a wallet already exists.
func CreateWalletManager(keystoreDir string, password string) (*WalletManager, error) {
	ks, err := openKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}
	if len(ks.Accounts()) > 0 {
		return nil, fmt.Errorf("wallet already exists in %s", keystoreDir)
	}

	account, err := ks.NewAccount(password)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	return &WalletManager{
		keystore: ks,
		keyPath:  keystoreDir,
		address:  account.Address,
		loaded:   true,
	}, nil
}

// ImportWalletManager imports a hex private key (with or without 0x) into a
// new wallet. Returns an error if a wallet already exists.
func ImportWalletManager(keystoreDir string, privKeyHex string, password string) (*WalletManager, error) {
	ks, err := openKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}
	if len(ks.Accounts()) > 0 {
		return nil, fmt.Errorf("wallet already exists in %s", keystoreDir)
	}

	privKeyHex = strings.TrimPrefix(strings.TrimSpace(privKeyHex), "0x")
	privateKey, err := crypto.HexToECDSA(privKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	account, err := ks.ImportECDSA(privateKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to import key: %w", err)
	}

	return &WalletManager{
		keystore: ks,
		keyPath:  keystoreDir,
		address:  account.Address,
		loaded:   true,
	}, nil
}

// IsLoaded returns true if the wallet manager has a loaded wallet.
func (wm *WalletManager) IsLoaded() bool {
	return wm != nil && wm.loaded
}

// Address returns the account address
func (wm *WalletManager) Address() common.Address {
	return wm.address
}

// AddressString returns the address as a checksummed hex string
func (wm *WalletManager) AddressString() string {
	return wm.address.Hex()
}

// KeystoreDir returns the path to the keystore directory
func (wm *WalletManager) KeystoreDir() string {
	return wm.keyPath
}

// Unlocked reports whether the private key is cached in memory
func (wm *WalletManager) Unlocked() bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return wm.privateKey != nil
}

// PrivateKey decrypts and caches the private key for signing transactions
func (wm *WalletManager) PrivateKey(password string) (*ecdsa.PrivateKey, error) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if wm.privateKey != nil {
		return wm.privateKey, nil
	}

	accounts := wm.keystore.Accounts()
	if len(accounts) == 0 {
		return nil, ErrNoWallet
	}

	keyJSON, err := os.ReadFile(accounts[0].URL.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}

	wm.privateKey = key.PrivateKey
	return key.PrivateKey, nil
}

// ClearCachedKey zeros and removes the cached private key from memory.
func (wm *WalletManager) ClearCachedKey() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if wm.privateKey != nil {
		wm.privateKey.D.SetUint64(0)
		wm.privateKey = nil
	}
}

// ExportKeyHex returns the private key as un-prefixed hex
func (wm *WalletManager) ExportKeyHex(password string) (string, error) {
	key, err := wm.PrivateKey(password)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", crypto.FromECDSA(key)), nil
}
