package staking

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vestake/vestake/internal/session"
	pkgtypes "github.com/vestake/vestake/pkg/types"
)

// Token is the token contract surface the form uses
type Token interface {
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	ApproveAndWait(ctx context.Context, spender common.Address, amount *big.Int) (*types.Receipt, error)
	MintAndWait(ctx context.Context, to common.Address, amount *big.Int) (*types.Receipt, error)
}

// Staking is the staking contract surface the form uses
type Staking interface {
	Address() common.Address
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	GetPositions(ctx context.Context, account common.Address, start, count *big.Int) ([]pkgtypes.Position, error)
	StakeAndWait(ctx context.Context, amount, duration *big.Int, autoRenew bool) (*types.Receipt, error)
	WithdrawAndWait(ctx context.Context, id *big.Int, gasLimit uint64) (*types.Receipt, error)
	ToggleAutoRenewAndWait(ctx context.Context, id *big.Int, gasLimit uint64) (*types.Receipt, error)
}

// Handles are the account and contract handles of a live connection
type Handles struct {
	Account common.Address
	Token   Token
	Staking Staking
}

// HandleSource yields the current handles; ok is false when disconnected
type HandleSource interface {
	Handles() (h Handles, ok bool)
}

// HandleFunc adapts a function to HandleSource
type HandleFunc func() (Handles, bool)

// Handles calls f
func (f HandleFunc) Handles() (Handles, bool) {
	return f()
}

// FromSession reads handles from the session on every call, so the form
// always acts on the latest connection.
func FromSession(s *session.Session) HandleSource {
	return HandleFunc(func() (Handles, bool) {
		conn := s.Connection()
		if conn == nil || conn.Token == nil || conn.Staking == nil {
			return Handles{}, false
		}
		return Handles{Account: conn.Account, Token: conn.Token, Staking: conn.Staking}, true
	})
}
