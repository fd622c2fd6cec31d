package types

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// DurationUnit is the unit the staking contract expects for a lock duration.
type DurationUnit string

const (
	DurationUnitSeconds DurationUnit = "seconds"
	DurationUnitMinutes DurationUnit = "minutes"
	DurationUnitHours   DurationUnit = "hours"
	DurationUnitDays    DurationUnit = "days"
	DurationUnitWeeks   DurationUnit = "weeks"
)

// IsValid reports whether u is a known unit
func (u DurationUnit) IsValid() bool {
	switch u {
	case DurationUnitSeconds, DurationUnitMinutes, DurationUnitHours, DurationUnitDays, DurationUnitWeeks:
		return true
	}
	return false
}

// Duration returns the wall-clock length of one unit.
func (u DurationUnit) Duration() time.Duration {
	switch u {
	case DurationUnitSeconds:
		return time.Second
	case DurationUnitMinutes:
		return time.Minute
	case DurationUnitHours:
		return time.Hour
	case DurationUnitDays:
		return 24 * time.Hour
	case DurationUnitWeeks:
		return 7 * 24 * time.Hour
	}
	return 0
}

// ParseLockDuration converts user input into a count of u.
//
// A bare integer ("30") is taken to already be in u. A Go duration string
// ("2h", "90m") is converted and must be an exact, positive multiple of u.
func ParseLockDuration(input string, u DurationUnit) (*big.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("duration is required")
	}
	if !u.IsValid() {
		return nil, fmt.Errorf("unknown duration unit %q", u)
	}

	n, err := strconv.ParseUint(input, 10, 64)
	switch {
	case err == nil:
		if n < 1 {
			return nil, fmt.Errorf("duration must be at least 1 %s", u)
		}
		return new(big.Int).SetUint64(n), nil
	case errors.Is(err, strconv.ErrRange):
		return nil, fmt.Errorf("duration %s %s is out of range", input, u)
	}

	d, err := time.ParseDuration(input)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: expected an integer number of %s or a duration like 2h", input, u)
	}
	step := u.Duration()
	if d < step {
		return nil, fmt.Errorf("duration must be at least 1 %s", u)
	}
	if d%step != 0 {
		return nil, fmt.Errorf("duration %s is not a whole number of %s", d, u)
	}
	return big.NewInt(int64(d / step)), nil
}

// Position is a staking lock as returned by the staking contract.
type Position struct {
	ID        string
	Amount    *big.Int
	Start     time.Time
	End       time.Time
	NumWeeks  uint8
	AutoRenew bool
}

// Closed reports whether the position has been withdrawn.
func (p Position) Closed() bool {
	return p.Amount == nil || p.Amount.Sign() == 0
}

// BalanceSnapshot holds display balances for the connected account.
type BalanceSnapshot struct {
	TokenBalance string `json:"token_balance"`
	StakedAmount string `json:"staked_amount"`
}

// ZeroBalances is the snapshot shown before the first load.
func ZeroBalances() BalanceSnapshot {
	return BalanceSnapshot{TokenBalance: "0", StakedAmount: "0"}
}
