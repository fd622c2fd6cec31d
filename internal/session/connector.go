package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vestake/vestake/internal/chain"
	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/identity"
	"github.com/vestake/vestake/internal/util"
)

var (
	// ErrNoWallet means there is no keystore account to connect with
	ErrNoWallet = identity.ErrNoWallet

	// ErrUserRejected means the unlock prompt was dismissed or left empty
	ErrUserRejected = errors.New("user rejected the connection request")
)

// Connection is the bundle published by a successful connect. It is
// replaced wholesale and never mutated after Connect returns.
type Connection struct {
	Account     common.Address
	Token       *chain.TokenContract
	Staking     *chain.StakingContract
	ChainID     *big.Int
	Chain       ChainIDReader // nil in mock mode
	KeystoreDir string
	Mock        bool

	closeFn func()
}

// Close releases the RPC client and forgets the decrypted key
func (c *Connection) Close() {
	if c != nil && c.closeFn != nil {
		c.closeFn()
	}
}

// Connector produces a live Connection
type Connector interface {
	Connect(ctx context.Context) (*Connection, error)
}

// PromptFunc asks the user for the wallet password. Returning "" or an
// error is treated as a rejection.
type PromptFunc func(account common.Address) (string, error)

// WalletConnector unlocks the keystore wallet and binds the contracts
type WalletConnector struct {
	Config  *config.Config
	Sources []identity.PasswordSource
	Prompt  PromptFunc

	ledgerOnce sync.Once
	ledger     *chain.MockLedger
}

// NewWalletConnector uses the default password lookup order for cfg
func NewWalletConnector(cfg *config.Config, prompt PromptFunc) *WalletConnector {
	return &WalletConnector{
		Config:  cfg,
		Sources: identity.DefaultPasswordSources(config.PasswordEnvVar, cfg.Wallet.PasswordFile),
		Prompt:  prompt,
	}
}

// Connect loads and unlocks the wallet, then dials the chain (or the mock
// ledger) and binds both contracts.
func (wc *WalletConnector) Connect(ctx context.Context) (*Connection, error) {
	cfg := wc.Config

	wm, err := identity.LoadWalletManager(cfg.Wallet.KeystoreDir)
	if err != nil {
		return nil, err
	}

	password := identity.ResolvePassword(wm.Address(), wc.Sources...)
	if password == "" {
		if wc.Prompt == nil {
			return nil, fmt.Errorf("%w: no wallet password available", ErrUserRejected)
		}
		password, err = wc.Prompt(wm.Address())
		if err != nil || password == "" {
			return nil, ErrUserRejected
		}
	}

	key, err := wm.PrivateKey(password)
	if err != nil {
		return nil, fmt.Errorf("failed to unlock wallet: %w", err)
	}

	if cfg.Chain.Mock {
		ledger := wc.mockLedger()
		return &Connection{
			Account:     wm.Address(),
			Token:       chain.NewMockTokenContract(ledger, wm.Address()),
			Staking:     chain.NewMockStakingContract(ledger, wm.Address()),
			ChainID:     big.NewInt(cfg.Chain.ChainID),
			KeystoreDir: wm.KeystoreDir(),
			Mock:        true,
			closeFn:     wm.ClearCachedKey,
		}, nil
	}

	retry := util.DefaultRetryConfig()
	retry.MaxRetries = cfg.Chain.RPCDialRetries

	client, err := chain.NewClient(&chain.ClientConfig{
		RPCURL:             cfg.Chain.RPCURL,
		WSEndpoint:         cfg.Chain.WSEndpoint,
		ChainID:            cfg.Chain.ChainID,
		BlockConfirmations: cfg.Chain.BlockConfirmations,
		MaxGasPrice:        cfg.MaxGasPrice(),
		RateLimit:          cfg.Chain.RPCRateLimit,
		RetryConfig:        retry,
	}, key)
	if err != nil {
		wm.ClearCachedKey()
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		wm.ClearCachedKey()
		return nil, err
	}

	closeAll := func() {
		client.Close()
		wm.ClearCachedKey()
	}

	token, err := chain.NewTokenContract(client, common.HexToAddress(cfg.Contracts.TokenAddress))
	if err != nil {
		closeAll()
		return nil, err
	}
	staking, err := chain.NewStakingContract(client, common.HexToAddress(cfg.Contracts.StakingAddress))
	if err != nil {
		closeAll()
		return nil, err
	}

	return &Connection{
		Account:     wm.Address(),
		Token:       token,
		Staking:     staking,
		ChainID:     client.ChainID(),
		Chain:       client,
		KeystoreDir: wm.KeystoreDir(),
		closeFn:     closeAll,
	}, nil
}

// mockLedger is shared by every connection the connector makes so mock
// balances survive a reconnect.
func (wc *WalletConnector) mockLedger() *chain.MockLedger {
	wc.ledgerOnce.Do(func() {
		wc.ledger = chain.NewMockLedger(wc.Config.Staking.DurationUnit)
	})
	return wc.ledger
}
