package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vestake/vestake/internal/logging"
	pkgtypes "github.com/vestake/vestake/pkg/types"
)

// StakingContract provides access to the lock/staking contract
type StakingContract struct {
	client       *Client
	contract     *bind.BoundContract
	contractAddr common.Address
	mockMode     bool

	ledger *MockLedger
	owner  common.Address
}

// lockTuple mirrors the getPositions tuple layout
type lockTuple struct {
	Amount    *big.Int
	Start     *big.Int
	End       *big.Int
	NumWeeks  uint8
	AutoRenew bool
	Id        *big.Int
}

// NewStakingContract binds the staking contract at contractAddr over a connected client
func NewStakingContract(client *Client, contractAddr common.Address) (*StakingContract, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required (use NewMockStakingContract for testing)")
	}
	if !client.IsConnected() {
		return nil, fmt.Errorf("client not connected to RPC")
	}

	parsedABI, err := abi.JSON(strings.NewReader(StakingABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse staking ABI: %w", err)
	}

	contract, err := client.BindContract(contractAddr, parsedABI)
	if err != nil {
		return nil, err
	}

	return &StakingContract{
		client:       client,
		contract:     contract,
		contractAddr: contractAddr,
	}, nil
}

// NewMockStakingContract creates a staking contract backed by ledger that signs as owner
func NewMockStakingContract(ledger *MockLedger, owner common.Address) *StakingContract {
	return &StakingContract{
		contractAddr: MockStakingAddress,
		mockMode:     true,
		ledger:       ledger,
		owner:        owner,
	}
}

// Address returns the staking contract address, the spender for approvals
func (sc *StakingContract) Address() common.Address {
	return sc.contractAddr
}

// BalanceOf returns the staked (veToken) balance of account
func (sc *StakingContract) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	if sc.mockMode {
		return sc.ledger.stakedBalance(account), nil
	}

	var result []interface{}
	if err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &result, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("failed to get staked balance: %w", err)
	}
	if len(result) == 0 {
		return big.NewInt(0), nil
	}
	if balance, ok := result[0].(*big.Int); ok {
		return balance, nil
	}
	return nil, fmt.Errorf("unexpected balanceOf result type %T", result[0])
}

// GetPositions returns up to count locks of account starting at index start,
// in contract order. Closed (zero-amount) locks are included.
func (sc *StakingContract) GetPositions(ctx context.Context, account common.Address, start, count *big.Int) ([]pkgtypes.Position, error) {
	if sc.mockMode {
		return sc.ledger.positions(account, start, count), nil
	}

	var result []interface{}
	if err := sc.contract.Call(&bind.CallOpts{Context: ctx}, &result, "getPositions", account, start, count); err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	if len(result) == 0 {
		return nil, nil
	}

	tuples, ok := abi.ConvertType(result[0], new([]lockTuple)).(*[]lockTuple)
	if !ok {
		return nil, fmt.Errorf("unexpected getPositions result type %T", result[0])
	}

	positions := make([]pkgtypes.Position, 0, len(*tuples))
	for _, t := range *tuples {
		positions = append(positions, t.position())
	}
	return positions, nil
}

func (t lockTuple) position() pkgtypes.Position {
	p := pkgtypes.Position{
		Amount:    t.Amount,
		NumWeeks:  t.NumWeeks,
		AutoRenew: t.AutoRenew,
	}
	if p.Amount == nil {
		p.Amount = big.NewInt(0)
	}
	if t.Id != nil {
		p.ID = t.Id.String()
	}
	if t.Start != nil {
		p.Start = time.Unix(t.Start.Int64(), 0)
	}
	if t.End != nil {
		p.End = time.Unix(t.End.Int64(), 0)
	}
	return p
}

// stake submits a lock of amount for duration (in the contract's unit)
func (sc *StakingContract) stake(ctx context.Context, amount, duration *big.Int, autoRenew bool) (*types.Transaction, error) {
	tx, err := sc.client.Transact(ctx, sc.contract, 0, "stake", amount, duration, autoRenew)
	if err != nil {
		return nil, fmt.Errorf("failed to stake: %w", err)
	}
	return tx, nil
}

// StakeAndWait locks amount for duration (in the contract's unit) and waits for confirmation
func (sc *StakingContract) StakeAndWait(ctx context.Context, amount, duration *big.Int, autoRenew bool) (*types.Receipt, error) {
	if sc.mockMode {
		receipt, err := sc.ledger.stake(sc.owner, amount, duration, autoRenew)
		if err != nil {
			return nil, fmt.Errorf("failed to stake: %w", err)
		}
		logging.Debug("mock stake", "amount", amount.String(), "duration", duration.String(), "auto_renew", autoRenew)
		return receipt, nil
	}

	tx, err := sc.stake(ctx, amount, duration, autoRenew)
	if err != nil {
		return nil, err
	}
	return sc.client.WaitForTransaction(ctx, tx)
}

// withdraw submits release of a matured lock. gasLimit 0 estimates.
func (sc *StakingContract) withdraw(ctx context.Context, id *big.Int, gasLimit uint64) (*types.Transaction, error) {
	tx, err := sc.client.Transact(ctx, sc.contract, gasLimit, "withdraw", id)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw: %w", err)
	}
	return tx, nil
}

// WithdrawAndWait releases a matured lock and waits for confirmation
func (sc *StakingContract) WithdrawAndWait(ctx context.Context, id *big.Int, gasLimit uint64) (*types.Receipt, error) {
	if sc.mockMode {
		receipt, err := sc.ledger.withdraw(sc.owner, id)
		if err != nil {
			return nil, fmt.Errorf("failed to withdraw: %w", err)
		}
		return receipt, nil
	}

	tx, err := sc.withdraw(ctx, id, gasLimit)
	if err != nil {
		return nil, err
	}
	return sc.client.WaitForTransaction(ctx, tx)
}

// toggleAutoRenew submits a flip of a lock's auto-renew flag. gasLimit 0 estimates.
func (sc *StakingContract) toggleAutoRenew(ctx context.Context, id *big.Int, gasLimit uint64) (*types.Transaction, error) {
	tx, err := sc.client.Transact(ctx, sc.contract, gasLimit, "toggleAutoRenew", id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle auto-renew: %w", err)
	}
	return tx, nil
}

// ToggleAutoRenewAndWait flips a lock's auto-renew flag and waits for confirmation
func (sc *StakingContract) ToggleAutoRenewAndWait(ctx context.Context, id *big.Int, gasLimit uint64) (*types.Receipt, error) {
	if sc.mockMode {
		receipt, err := sc.ledger.toggleAutoRenew(sc.owner, id)
		if err != nil {
			return nil, fmt.Errorf("failed to toggle auto-renew: %w", err)
		}
		return receipt, nil
	}

	tx, err := sc.toggleAutoRenew(ctx, id, gasLimit)
	if err != nil {
		return nil, err
	}
	return sc.client.WaitForTransaction(ctx, tx)
}
