package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/vestake/vestake/internal/logging"
	"github.com/vestake/vestake/internal/util"
)

// ErrNotConnected is returned by client methods before Connect succeeds
var ErrNotConnected = errors.New("not connected")

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	RPCURL              string
	WSEndpoint          string
	ChainID             int64
	BlockConfirmations  int
	MaxGasPrice         *big.Int
	RateLimit           float64 // read calls per second (0 = unlimited)
	ConfirmPollInterval time.Duration
	RetryConfig         *util.RetryConfig
}

// DefaultClientConfig returns defaults for a local development node
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		RPCURL:              "http://127.0.0.1:8545",
		ChainID:             31337,
		MaxGasPrice:         big.NewInt(100e9),
		RateLimit:           20,
		ConfirmPollInterval: 2 * time.Second,
		RetryConfig:         util.DefaultRetryConfig(),
	}
}

// Client signs and submits transactions and serves rate-limited reads
type Client struct {
	config     *ClientConfig
	client     *ethclient.Client
	caller     bind.ContractCaller
	limiter    *rate.Limiter
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int

	// Nonce management
	nonceMu      sync.Mutex
	pendingNonce uint64

	connected bool
	mu        sync.RWMutex
}

// NewClient creates a client that signs with privateKey
func NewClient(config *ClientConfig, privateKey *ecdsa.PrivateKey) (*Client, error) {
	if config == nil {
		config = DefaultClientConfig()
	}
	if privateKey == nil {
		return nil, fmt.Errorf("private key is required")
	}

	c := &Client{
		config:     config,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    big.NewInt(config.ChainID),
	}
	if config.RateLimit > 0 {
		burst := int(config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}
	return c, nil
}

// Connect dials the RPC endpoint, verifies the chain id and primes the nonce.
// The dial is retried per RetryConfig; nothing else is.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, result := util.RetryWithValue(ctx, c.config.RetryConfig, func() (*ethclient.Client, error) {
		cl, err := ethclient.DialContext(ctx, c.config.RPCURL)
		if err != nil {
			// malformed URL or unknown scheme; another attempt cannot help
			return nil, util.MarkNonRetryable(err)
		}
		// Dial is lazy for HTTP; ChainID proves the endpoint answers
		if _, err := cl.ChainID(ctx); err != nil {
			cl.Close()
			return nil, err
		}
		return cl, nil
	})
	if result.LastError != nil {
		return fmt.Errorf("failed to connect to RPC %s: %w", c.config.RPCURL, result.LastError)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if chainID.Cmp(c.chainID) != 0 {
		client.Close()
		return fmt.Errorf("chain ID mismatch: expected %d, got %d", c.chainID, chainID)
	}

	nonce, err := client.PendingNonceAt(ctx, c.address)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get nonce: %w", err)
	}

	c.client = client
	c.caller = &limitedCaller{ContractCaller: client, limiter: c.limiter}
	c.pendingNonce = nonce
	c.connected = true

	logging.Debug("rpc connected",
		logging.Component("chain"),
		"rpc", c.config.RPCURL,
		"chain_id", chainID.String(),
		logging.Account(c.address))
	return nil
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.caller = nil
	c.connected = false
}

// IsConnected returns true after a successful Connect
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Address returns the signer address
func (c *Client) Address() common.Address {
	return c.address
}

// ChainID returns the configured chain ID
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// NetworkChainID asks the node for its current chain ID
func (c *Client) NetworkChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConnected
	}
	return client.ChainID(ctx)
}

// BindContract binds address to parsed ABI. Reads go through the limiter.
func (c *Client) BindContract(address common.Address, parsed abi.ABI) (*bind.BoundContract, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return nil, ErrNotConnected
	}
	return bind.NewBoundContract(address, parsed, c.caller, c.client, c.client), nil
}

// TransactOpts creates signing options with the next nonce. A non-zero
// gasLimit skips estimation.
func (c *Client) TransactOpts(ctx context.Context, gasLimit uint64) (*bind.TransactOpts, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConnected
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	if c.config.MaxGasPrice != nil && gasPrice.Cmp(c.config.MaxGasPrice) > 0 {
		gasPrice = c.config.MaxGasPrice
	}

	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	auth.Context = ctx
	auth.GasPrice = gasPrice
	auth.GasLimit = gasLimit

	c.nonceMu.Lock()
	auth.Nonce = new(big.Int).SetUint64(c.pendingNonce)
	c.pendingNonce++
	c.nonceMu.Unlock()

	return auth, nil
}

// Transact submits method on contract, resyncing the nonce if submission fails
func (c *Client) Transact(ctx context.Context, contract *bind.BoundContract, gasLimit uint64, method string, args ...interface{}) (*types.Transaction, error) {
	auth, err := c.TransactOpts(ctx, gasLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction options: %w", err)
	}

	tx, err := contract.Transact(auth, method, args...)
	if err != nil {
		if syncErr := c.SyncNonce(ctx); syncErr != nil {
			logging.Warn("nonce resync failed", logging.Component("chain"), logging.Err(syncErr))
		}
		return nil, err
	}

	logging.Debug("transaction submitted",
		logging.Component("chain"),
		"method", method,
		logging.TxHash(tx.Hash()))
	return tx, nil
}

// WaitForTransaction waits for a transaction to be mined and confirmed
func (c *Client) WaitForTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConnected
	}

	receipt, err := bind.WaitMined(ctx, client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction: %w", err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, fmt.Errorf("transaction reverted: %s", tx.Hash().Hex())
	}

	if c.config.BlockConfirmations > 0 {
		targetBlock := receipt.BlockNumber.Uint64() + uint64(c.config.BlockConfirmations)
		interval := c.config.ConfirmPollInterval
		if interval <= 0 {
			interval = 2 * time.Second
		}

		for {
			select {
			case <-ctx.Done():
				return receipt, ctx.Err()
			case <-time.After(interval):
				currentBlock, err := client.BlockNumber(ctx)
				if err != nil {
					continue
				}
				if currentBlock >= targetBlock {
					return receipt, nil
				}
			}
		}
	}

	return receipt, nil
}

// SyncNonce synchronizes the nonce with the network
func (c *Client) SyncNonce(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		return ErrNotConnected
	}

	nonce, err := client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}

	c.nonceMu.Lock()
	c.pendingNonce = nonce
	c.nonceMu.Unlock()

	return nil
}

// limitedCaller throttles contract reads
type limitedCaller struct {
	bind.ContractCaller
	limiter *rate.Limiter
}

func (l *limitedCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.ContractCaller.CodeAt(ctx, contract, blockNumber)
}

func (l *limitedCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.ContractCaller.CallContract(ctx, call, blockNumber)
}

func (l *limitedCaller) wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}
