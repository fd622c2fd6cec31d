package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vestake/vestake/internal/logging"
)

// TokenContract provides access to the mintable test token
type TokenContract struct {
	client       *Client
	contract     *bind.BoundContract
	contractAddr common.Address
	mockMode     bool

	ledger *MockLedger
	owner  common.Address
}

// NewTokenContract binds the token at contractAddr over a connected client
func NewTokenContract(client *Client, contractAddr common.Address) (*TokenContract, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required (use NewMockTokenContract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	contract, err := client.BindContract(contractAddr, parsedABI)
	if err != nil {
		return nil, err
	}

	return &TokenContract{
		client:       client,
		contract:     contract,
		contractAddr: contractAddr,
	}, nil
}

// NewMockTokenContract creates a token backed by ledger that signs as owner
func NewMockTokenContract(ledger *MockLedger, owner common.Address) *TokenContract {
	return &TokenContract{
		contractAddr: MockTokenAddress,
		mockMode:     true,
		ledger:       ledger,
		owner:        owner,
	}
}

// Address returns the token contract address
func (tc *TokenContract) Address() common.Address {
	return tc.contractAddr
}

// BalanceOf returns the token balance for an address
func (tc *TokenContract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if tc.mockMode {
		return tc.ledger.balanceOf(account), nil
	}

	balance, err := tc.callUint(ctx, "balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Allowance returns the amount spender may pull from owner
func (tc *TokenContract) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	if tc.mockMode {
		return tc.ledger.allowance(owner, spender), nil
	}

	allowance, err := tc.callUint(ctx, "allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("failed to get allowance: %w", err)
	}
	return allowance, nil
}

func (tc *TokenContract) callUint(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	var result []interface{}
	if err := tc.contract.Call(&bind.CallOpts{Context: ctx}, &result, method, args...); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return big.NewInt(0), nil
	}
	if v, ok := result[0].(*big.Int); ok {
		return v, nil
	}
	return nil, fmt.Errorf("unexpected %s result type %T", method, result[0])
}

func (tc *TokenContract) approve(ctx context.Context, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	tx, err := tc.client.Transact(ctx, tc.contract, 0, "approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to approve: %w", err)
	}
	return tx, nil
}

// ApproveAndWait approves and waits for confirmation
func (tc *TokenContract) ApproveAndWait(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	if tc.mockMode {
		receipt := tc.ledger.approve(tc.owner, spender, amount)
		logging.Debug("mock approve", "spender", spender.Hex(), "amount", amount.String(), logging.TxHash(receipt.TxHash))
		return receipt, nil
	}

	tx, err := tc.approve(ctx, spender, amount)
	if err != nil {
		return nil, err
	}
	return tc.client.WaitForTransaction(ctx, tx)
}

func (tc *TokenContract) mint(ctx context.Context, to common.Address, amount *big.Int) (*types.Transaction, error) {
	tx, err := tc.client.Transact(ctx, tc.contract, 0, "mint", to, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to mint: %w", err)
	}
	return tx, nil
}

// MintAndWait mints and waits for confirmation
func (tc *TokenContract) MintAndWait(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error) {
	if tc.mockMode {
		return tc.ledger.mint(to, amount), nil
	}

	tx, err := tc.mint(ctx, to, amount)
	if err != nil {
		return nil, err
	}
	return tc.client.WaitForTransaction(ctx, tx)
}
