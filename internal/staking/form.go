package staking

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vestake/vestake/internal/chain"
	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/logging"
	pkgtypes "github.com/vestake/vestake/pkg/types"
)

var (
	ErrNotConnected     = errors.New("please connect your wallet first")
	ErrInvalidID        = errors.New("please enter a valid ID")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrWithdrawInFlight = errors.New("withdrawal already in progress for this position")
)

// Action names used for logging and metrics
const (
	ActionApprove  = "approve"
	ActionStake    = "stake"
	ActionWithdraw = "withdraw"
	ActionToggle   = "toggle_auto_renew"
	ActionMint     = "mint"
)

// Options holds the deployment constants of the form
type Options struct {
	DurationUnit     pkgtypes.DurationUnit
	DefaultDuration  string
	WithdrawGasLimit uint64
	ToggleGasLimit   uint64
	PageSize         int64
	MintAmount       string // whole tokens
	TimeLayout       string
	Location         *time.Location
}

// OptionsFromConfig maps the staking config section to form options
func OptionsFromConfig(cfg config.StakingConfig) Options {
	return Options{
		DurationUnit:     cfg.DurationUnit,
		DefaultDuration:  cfg.DefaultDuration,
		WithdrawGasLimit: cfg.WithdrawGasLimit,
		ToggleGasLimit:   cfg.ToggleGasLimit,
		PageSize:         cfg.PositionPageSize,
		MintAmount:       cfg.MintAmount,
		TimeLayout:       cfg.TimeLayout,
		Location:         time.Local,
	}
}

// Recorder observes action outcomes
type Recorder interface {
	ActionStarted(action string)
	ActionFinished(action string, err error, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ActionStarted(string)                        {}
func (nopRecorder) ActionFinished(string, error, time.Duration) {}

// PendingAllowance is an approval that confirmed but whose stake has not
type PendingAllowance struct {
	Spender     common.Address
	Amount      *big.Int
	TxHash      common.Hash
	ConfirmedAt time.Time
}

// PositionView is a position rendered for display
type PositionView struct {
	ID        string    `json:"id"`
	Amount    string    `json:"amount"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	StartText string    `json:"-"`
	EndText   string    `json:"-"`
	NumWeeks  uint8     `json:"num_weeks"`
	AutoRenew bool      `json:"auto_renew"`
}

// State is a point-in-time copy of everything the form view renders
type State struct {
	Amount      string
	Duration    string
	AutoUpdate  bool
	WithdrawID  string
	Loading     bool
	Err         string
	Balances    pkgtypes.BalanceSnapshot
	Positions   []PositionView
	Pending     *PendingAllowance
	Withdrawing []string
	LastTx      string
}

// Form is the staking form controller. Actions run sequential chains of
// awaited contract calls; the form is safe for concurrent use.
type Form struct {
	src  HandleSource
	opts Options
	rec  Recorder

	mu          sync.Mutex
	amount      string
	duration    string
	autoUpdate  bool
	withdrawID  string
	inFlight    int
	err         string
	balances    pkgtypes.BalanceSnapshot
	positions   []PositionView
	pending     *PendingAllowance
	withdrawing map[string]bool
	lastTx      string
}

// NewForm creates a form reading handles from src
func NewForm(src HandleSource, opts Options) *Form {
	if opts.DefaultDuration == "" {
		opts.DefaultDuration = "30"
	}
	if opts.DurationUnit == "" {
		opts.DurationUnit = pkgtypes.DurationUnitMinutes
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.MintAmount == "" {
		opts.MintAmount = "1000"
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = time.DateTime
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &Form{
		src:         src,
		opts:        opts,
		rec:         nopRecorder{},
		duration:    opts.DefaultDuration,
		balances:    pkgtypes.ZeroBalances(),
		withdrawing: make(map[string]bool),
	}
}

// SetRecorder installs a metrics recorder
func (f *Form) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	f.rec = r
}

// Options returns the form's deployment constants
func (f *Form) Options() Options {
	return f.opts
}

func (f *Form) SetAmount(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amount = v
}

func (f *Form) SetDuration(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = v
}

func (f *Form) SetAutoUpdate(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.autoUpdate = v
}

func (f *Form) SetWithdrawID(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withdrawID = v
}

// Loading reports whether any action is in flight
func (f *Form) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight > 0
}

// Err returns the last action error message, or ""
func (f *Form) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// CanWithdraw reports whether a withdraw for id may be started
func (f *Form) CanWithdraw(id string) bool {
	key, err := parseID(id)
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.withdrawing[key.String()]
}

// State returns a copy of the view state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	st := State{
		Amount:     f.amount,
		Duration:   f.duration,
		AutoUpdate: f.autoUpdate,
		WithdrawID: f.withdrawID,
		Loading:    f.inFlight > 0,
		Err:        f.err,
		Balances:   f.balances,
		Positions:  append([]PositionView(nil), f.positions...),
		LastTx:     f.lastTx,
	}
	if f.pending != nil {
		p := *f.pending
		p.Amount = new(big.Int).Set(f.pending.Amount)
		st.Pending = &p
	}
	for id := range f.withdrawing {
		st.Withdrawing = append(st.Withdrawing, id)
	}
	return st
}

// Reset returns the form to its initial state, e.g. after a disconnect
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.amount = ""
	f.duration = f.opts.DefaultDuration
	f.autoUpdate = false
	f.withdrawID = ""
	f.err = ""
	f.balances = pkgtypes.ZeroBalances()
	f.positions = nil
	f.pending = nil
	f.lastTx = ""
}

// begin marks an action in flight and clears the previous error. The
// returned func must be deferred; it records the outcome and the error text.
func (f *Form) begin(action string) func(*error) {
	f.mu.Lock()
	f.inFlight++
	f.err = ""
	f.mu.Unlock()

	f.rec.ActionStarted(action)
	start := time.Now()

	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}

		f.mu.Lock()
		f.inFlight--
		if err != nil {
			f.err = err.Error()
		}
		f.mu.Unlock()

		f.rec.ActionFinished(action, err, time.Since(start))
	}
}

// reject records a validation or connection error without starting an action
func (f *Form) reject(err error) error {
	f.mu.Lock()
	f.err = err.Error()
	f.mu.Unlock()
	return err
}

func (f *Form) confirmed(action string, h Handles, target string, receipt *types.Receipt) {
	var hash string
	if receipt != nil {
		hash = receipt.TxHash.Hex()
	}
	f.mu.Lock()
	f.lastTx = hash
	f.mu.Unlock()

	logging.Audit(logging.AuditEvent{
		Operation: action,
		Account:   h.Account.Hex(),
		Target:    target,
		TxHash:    hash,
		Result:    "confirmed",
	})
}

func failed(action string, h Handles, target string, err error) {
	logging.Audit(logging.AuditEvent{
		Operation: action,
		Account:   h.Account.Hex(),
		Target:    target,
		Result:    "failed",
		Details:   err.Error(),
	})
}

// LoadBalances replaces the balance snapshot. On failure the previous
// snapshot is kept and the error is logged and returned.
func (f *Form) LoadBalances(ctx context.Context) error {
	h, ok := f.src.Handles()
	if !ok {
		return ErrNotConnected
	}

	tokenBal, err := h.Token.BalanceOf(ctx, h.Account)
	if err != nil {
		logging.Warn("failed to load token balance", logging.Component("staking"), logging.Account(h.Account), logging.Err(err))
		return err
	}
	staked, err := h.Staking.BalanceOf(ctx, h.Account)
	if err != nil {
		logging.Warn("failed to load staked balance", logging.Component("staking"), logging.Account(h.Account), logging.Err(err))
		return err
	}

	f.mu.Lock()
	f.balances = pkgtypes.BalanceSnapshot{
		TokenBalance: chain.FormatEther(tokenBal),
		StakedAmount: chain.FormatEther(staked),
	}
	f.mu.Unlock()
	return nil
}

// LoadPositions replaces the open position list, dropping closed
// positions. On failure the previous list is kept.
func (f *Form) LoadPositions(ctx context.Context) error {
	h, ok := f.src.Handles()
	if !ok {
		return ErrNotConnected
	}

	raw, err := h.Staking.GetPositions(ctx, h.Account, big.NewInt(0), big.NewInt(f.opts.PageSize))
	if err != nil {
		logging.Warn("failed to load positions", logging.Component("staking"), logging.Account(h.Account), logging.Err(err))
		return err
	}

	views := make([]PositionView, 0, len(raw))
	for _, p := range raw {
		if p.Closed() {
			continue
		}
		views = append(views, f.view(p))
	}

	f.mu.Lock()
	f.positions = views
	f.mu.Unlock()
	return nil
}

func (f *Form) view(p pkgtypes.Position) PositionView {
	return PositionView{
		ID:        p.ID,
		Amount:    chain.FormatEther(p.Amount),
		Start:     p.Start,
		End:       p.End,
		StartText: p.Start.In(f.opts.Location).Format(f.opts.TimeLayout),
		EndText:   p.End.In(f.opts.Location).Format(f.opts.TimeLayout),
		NumWeeks:  p.NumWeeks,
		AutoRenew: p.AutoRenew,
	}
}

// Refresh reloads balances and positions. Failures are logged only.
func (f *Form) Refresh(ctx context.Context) {
	_ = f.LoadBalances(ctx)
	_ = f.LoadPositions(ctx)
}

// Stake approves the staking contract for the entered amount (unless a
// standing allowance already covers it), waits, then stakes and waits.
func (f *Form) Stake(ctx context.Context) (err error) {
	h, ok := f.src.Handles()
	if !ok {
		return f.reject(ErrNotConnected)
	}

	f.mu.Lock()
	amountIn, durationIn, autoUpdate := f.amount, f.duration, f.autoUpdate
	f.mu.Unlock()

	amount, err := chain.ParseEther(amountIn)
	if err != nil {
		return f.reject(fmt.Errorf("%w: %v", ErrInvalidAmount, err))
	}
	if amount.Sign() <= 0 {
		return f.reject(fmt.Errorf("%w: amount must be greater than zero", ErrInvalidAmount))
	}
	duration, err := pkgtypes.ParseLockDuration(durationIn, f.opts.DurationUnit)
	if err != nil {
		return f.reject(fmt.Errorf("%w: %v", ErrInvalidDuration, err))
	}

	done := f.begin(ActionStake)
	defer done(&err)

	spender := h.Staking.Address()
	usedPending, err := f.ensureAllowance(ctx, h, spender, amount)
	if err != nil {
		failed(ActionApprove, h, spender.Hex(), err)
		return err
	}

	receipt, err := h.Staking.StakeAndWait(ctx, amount, duration, autoUpdate)
	if err != nil {
		if usedPending {
			// the recorded allowance may have been spent elsewhere; check on-chain next time
			f.mu.Lock()
			f.pending = nil
			f.mu.Unlock()
		}
		failed(ActionStake, h, spender.Hex(), err)
		return err
	}
	f.confirmed(ActionStake, h, spender.Hex(), receipt)

	f.mu.Lock()
	f.pending = nil
	f.amount = ""
	f.duration = f.opts.DefaultDuration
	f.mu.Unlock()

	logging.Info("stake confirmed",
		logging.Component("staking"),
		logging.Account(h.Account),
		"amount", chain.FormatEther(amount),
		"duration", duration.String(),
		"unit", string(f.opts.DurationUnit),
		"auto_renew", autoUpdate)

	f.Refresh(ctx)
	return nil
}

// ensureAllowance submits and awaits an approval for exactly amount unless
// the recorded pending allowance or the on-chain allowance already covers it.
// usedPending reports whether the pending record was relied on.
func (f *Form) ensureAllowance(ctx context.Context, h Handles, spender common.Address, amount *big.Int) (usedPending bool, err error) {
	f.mu.Lock()
	pending := f.pending
	f.mu.Unlock()

	if pending != nil && pending.Spender == spender && pending.Amount.Cmp(amount) >= 0 {
		logging.Debug("reusing pending allowance", logging.Component("staking"), "amount", pending.Amount.String())
		return true, nil
	}

	allowance, err := h.Token.Allowance(ctx, h.Account, spender)
	if err != nil {
		logging.Warn("allowance check failed, approving", logging.Component("staking"), logging.Err(err))
	} else if allowance.Cmp(amount) >= 0 {
		logging.Debug("standing allowance covers stake", logging.Component("staking"), "allowance", allowance.String())
		return false, nil
	}

	f.rec.ActionStarted(ActionApprove)
	start := time.Now()
	receipt, err := h.Token.ApproveAndWait(ctx, spender, amount)
	f.rec.ActionFinished(ActionApprove, err, time.Since(start))
	if err != nil {
		return false, err
	}
	f.confirmed(ActionApprove, h, spender.Hex(), receipt)

	rec := &PendingAllowance{
		Spender:     spender,
		Amount:      new(big.Int).Set(amount),
		ConfirmedAt: time.Now(),
	}
	if receipt != nil {
		rec.TxHash = receipt.TxHash
	}
	f.mu.Lock()
	f.pending = rec
	f.mu.Unlock()
	return false, nil
}

// Withdraw releases the position with the given id
func (f *Form) Withdraw(ctx context.Context, id string) (err error) {
	h, ok := f.src.Handles()
	if !ok {
		return f.reject(ErrNotConnected)
	}
	posID, err := parseID(id)
	if err != nil {
		return f.reject(err)
	}
	key := posID.String()

	f.mu.Lock()
	if f.withdrawing[key] {
		f.mu.Unlock()
		return f.reject(ErrWithdrawInFlight)
	}
	f.withdrawing[key] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.withdrawing, key)
		f.mu.Unlock()
	}()

	done := f.begin(ActionWithdraw)
	defer done(&err)

	receipt, err := h.Staking.WithdrawAndWait(ctx, posID, f.opts.WithdrawGasLimit)
	if err != nil {
		failed(ActionWithdraw, h, key, err)
		return err
	}
	f.confirmed(ActionWithdraw, h, key, receipt)
	logging.Info("withdraw confirmed", logging.Component("staking"), logging.Account(h.Account), logging.PositionID(key))

	f.mu.Lock()
	f.withdrawID = ""
	f.mu.Unlock()

	f.Refresh(ctx)
	return nil
}

// ToggleAutoRenew flips auto-renew on the position with the given id
func (f *Form) ToggleAutoRenew(ctx context.Context, id string) (err error) {
	h, ok := f.src.Handles()
	if !ok {
		return f.reject(ErrNotConnected)
	}
	posID, err := parseID(id)
	if err != nil {
		return f.reject(err)
	}

	done := f.begin(ActionToggle)
	defer done(&err)

	receipt, err := h.Staking.ToggleAutoRenewAndWait(ctx, posID, f.opts.ToggleGasLimit)
	if err != nil {
		failed(ActionToggle, h, posID.String(), err)
		return err
	}
	f.confirmed(ActionToggle, h, posID.String(), receipt)

	_ = f.LoadPositions(ctx)
	return nil
}

// Mint mints the configured amount of test tokens to the account
func (f *Form) Mint(ctx context.Context) (err error) {
	h, ok := f.src.Handles()
	if !ok {
		return f.reject(ErrNotConnected)
	}
	amount, err := chain.ParseEther(f.opts.MintAmount)
	if err != nil {
		return f.reject(fmt.Errorf("%w: %v", ErrInvalidAmount, err))
	}

	done := f.begin(ActionMint)
	defer done(&err)

	receipt, err := h.Token.MintAndWait(ctx, h.Account, amount)
	if err != nil {
		failed(ActionMint, h, h.Account.Hex(), err)
		return err
	}
	f.confirmed(ActionMint, h, h.Account.Hex(), receipt)

	f.Refresh(ctx)
	return nil
}

// parseID accepts a non-negative decimal position id
func parseID(id string) (*big.Int, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	v, ok := new(big.Int).SetString(id, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is not a position id", ErrInvalidID, id)
	}
	return v, nil
}
