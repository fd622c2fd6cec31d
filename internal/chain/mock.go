package chain

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	pkgtypes "github.com/vestake/vestake/pkg/types"
)

// Mock contract addresses used when chain.mock is enabled
var (
	MockTokenAddress   = common.HexToAddress("0x00000000000000000000000000000000000070c1")
	MockStakingAddress = common.HexToAddress("0x0000000000000000000000000000000000005a4e")
)

const week = 7 * 24 * time.Hour

// MockLedger is the shared in-memory state behind the mock token and
// staking contracts. Staking pulls tokens through the allowance the same
// way the real contract does, so two-phase staking behaves identically.
type MockLedger struct {
	mu         sync.Mutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	locks      map[common.Address][]*mockLock
	nextID     uint64
	txCount    uint64
	unit       time.Duration
	now        func() time.Time
}

type mockLock struct {
	id        uint64
	amount    *big.Int
	start     time.Time
	end       time.Time
	numWeeks  uint8
	autoRenew bool
}

// NewMockLedger creates an empty ledger. unit is the length of one
// duration step passed to stake.
func NewMockLedger(unit pkgtypes.DurationUnit) *MockLedger {
	return &MockLedger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		locks:      make(map[common.Address][]*mockLock),
		nextID:     1,
		unit:       unit.Duration(),
		now:        time.Now,
	}
}

// SetClock replaces the ledger's time source
func (l *MockLedger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// receipt fabricates a successful receipt with a unique hash
func (l *MockLedger) receipt() *types.Receipt {
	l.txCount++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], l.txCount)
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      crypto.Keccak256Hash([]byte("vestake-mock"), buf[:]),
		BlockNumber: new(big.Int).SetUint64(l.txCount),
	}
}

func (l *MockLedger) balanceOf(account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (l *MockLedger) allowance(owner, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return big.NewInt(0)
}

func (l *MockLedger) approve(owner, spender common.Address, amount *big.Int) *types.Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.allowances[owner]; !ok {
		l.allowances[owner] = make(map[common.Address]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
	return l.receipt()
}

func (l *MockLedger) mint(to common.Address, amount *big.Int) *types.Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(to, amount)
	return l.receipt()
}

func (l *MockLedger) credit(to common.Address, amount *big.Int) {
	if b, ok := l.balances[to]; ok {
		l.balances[to] = new(big.Int).Add(b, amount)
		return
	}
	l.balances[to] = new(big.Int).Set(amount)
}

func (l *MockLedger) stakedBalance(account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := big.NewInt(0)
	for _, lock := range l.locks[account] {
		total.Add(total, lock.amount)
	}
	return total
}

func (l *MockLedger) stake(owner common.Address, amount, duration *big.Int, autoRenew bool) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("execution reverted: amount must be positive")
	}
	if duration.Sign() <= 0 || !duration.IsInt64() || duration.Int64() > math.MaxInt64/int64(l.unit) {
		return nil, fmt.Errorf("execution reverted: invalid duration")
	}
	allowed := l.allowances[owner][MockStakingAddress]
	if allowed == nil || allowed.Cmp(amount) < 0 {
		return nil, fmt.Errorf("execution reverted: ERC20: insufficient allowance")
	}
	balance := l.balances[owner]
	if balance == nil || balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("execution reverted: ERC20: transfer amount exceeds balance")
	}

	l.allowances[owner][MockStakingAddress] = new(big.Int).Sub(allowed, amount)
	l.balances[owner] = new(big.Int).Sub(balance, amount)

	start := l.now()
	length := time.Duration(duration.Int64()) * l.unit
	weeks := length / week
	if weeks > 255 {
		weeks = 255
	}
	l.locks[owner] = append(l.locks[owner], &mockLock{
		id:        l.nextID,
		amount:    new(big.Int).Set(amount),
		start:     start,
		end:       start.Add(length),
		numWeeks:  uint8(weeks),
		autoRenew: autoRenew,
	})
	l.nextID++
	return l.receipt(), nil
}

func (l *MockLedger) findLock(owner common.Address, id *big.Int) *mockLock {
	if !id.IsUint64() {
		return nil
	}
	for _, lock := range l.locks[owner] {
		if lock.id == id.Uint64() {
			return lock
		}
	}
	return nil
}

func (l *MockLedger) withdraw(owner common.Address, id *big.Int) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock := l.findLock(owner, id)
	if lock == nil || lock.amount.Sign() == 0 {
		return nil, fmt.Errorf("execution reverted: lock not found")
	}
	if lock.autoRenew {
		return nil, fmt.Errorf("execution reverted: lock is auto-renewing")
	}
	if l.now().Before(lock.end) {
		return nil, fmt.Errorf("execution reverted: lock is not expired")
	}

	l.credit(owner, lock.amount)
	lock.amount = big.NewInt(0)
	return l.receipt(), nil
}

func (l *MockLedger) toggleAutoRenew(owner common.Address, id *big.Int) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock := l.findLock(owner, id)
	if lock == nil || lock.amount.Sign() == 0 {
		return nil, fmt.Errorf("execution reverted: lock not found")
	}
	lock.autoRenew = !lock.autoRenew
	if lock.autoRenew {
		// renewing locks restart their full window
		length := lock.end.Sub(lock.start)
		lock.start = l.now()
		lock.end = lock.start.Add(length)
	}
	return l.receipt(), nil
}

func (l *MockLedger) positions(owner common.Address, start, count *big.Int) []pkgtypes.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	locks := l.locks[owner]
	if !start.IsInt64() || start.Int64() >= int64(len(locks)) {
		return nil
	}
	from := int(start.Int64())
	to := len(locks)
	if count.IsInt64() && from+int(count.Int64()) < to {
		to = from + int(count.Int64())
	}

	out := make([]pkgtypes.Position, 0, to-from)
	for _, lock := range locks[from:to] {
		out = append(out, pkgtypes.Position{
			ID:        fmt.Sprintf("%d", lock.id),
			Amount:    new(big.Int).Set(lock.amount),
			Start:     time.Unix(lock.start.Unix(), 0),
			End:       time.Unix(lock.end.Unix(), 0),
			NumWeeks:  lock.numWeeks,
			AutoRenew: lock.autoRenew,
		})
	}
	return out
}
