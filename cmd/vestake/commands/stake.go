package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vestake/vestake/internal/chain"
	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/pkg/types"
)

// stakeInput is what the stake form collects
type stakeInput struct {
	Amount    string
	Duration  string
	AutoRenew bool
}

func validateAmount(s string) error {
	v, err := chain.ParseEther(s)
	if err != nil {
		return err
	}
	if v.Sign() <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	return nil
}

func validateDuration(unit types.DurationUnit) func(string) error {
	return func(s string) error {
		_, err := types.ParseLockDuration(s, unit)
		return err
	}
}

// runStakeForm asks for amount, duration and auto-renew, starting from in.
func runStakeForm(cfg config.StakingConfig, in stakeInput) (stakeInput, bool, error) {
	confirm := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount").
				Description(fmt.Sprintf("%s to lock", cfg.TokenSymbol)).
				Placeholder("0.0").
				Validate(validateAmount).
				Value(&in.Amount),
			huh.NewInput().
				Title(durationLabel(cfg)).
				Description(fmt.Sprintf("Whole %s, or a duration like 2h", cfg.DurationUnit)).
				Placeholder(cfg.DefaultDuration).
				Validate(validateDuration(cfg.DurationUnit)).
				Value(&in.Duration),
			huh.NewConfirm().
				Title("Auto-renew?").
				Description("Auto-renewing positions cannot be withdrawn until renewal is turned off").
				Affirmative("Yes").
				Negative("No").
				Value(&in.AutoRenew),
		),
		huh.NewGroup(
			huh.NewConfirm().
				TitleFunc(func() string {
					return fmt.Sprintf("Stake %s %s for %s %s?", in.Amount, cfg.TokenSymbol, in.Duration, cfg.DurationUnit)
				}, &in).
				Description("An approval is submitted first unless the allowance already covers the amount").
				Affirmative("Stake").
				Negative("Cancel").
				Value(&confirm),
		),
	).WithTheme(huh.ThemeBase())

	if err := form.Run(); err != nil {
		return in, false, err
	}
	return in, confirm, nil
}

// doStake applies in to the form and runs the two-phase stake
func doStake(ctx context.Context, a *app, in stakeInput) error {
	a.form.SetAmount(in.Amount)
	a.form.SetDuration(in.Duration)
	a.form.SetAutoUpdate(in.AutoRenew)

	msg := fmt.Sprintf("Staking %s %s", in.Amount, a.cfg.Staking.TokenSymbol)
	if err := WithSpinner(msg, func() error { return a.form.Stake(ctx) }); err != nil {
		return err
	}

	st := a.form.State()
	Success(fmt.Sprintf("Staked %s %s", in.Amount, a.cfg.Staking.TokenSymbol))
	if st.LastTx != "" {
		fmt.Println(KeyValue("Transaction", FormatHash(st.LastTx)))
	}
	return nil
}

func NewStakeCmd() *cobra.Command {
	var in stakeInput

	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Lock tokens into a new staking position",
		Long: `Approve the staking contract for the amount (unless the existing allowance
already covers it), then stake. Both transactions are awaited.

Duration is a whole number of the configured staking.duration_unit, or a
Go duration such as 2h that converts exactly into it.

Without --amount on a terminal, a form asks for the inputs.`,
		Example: `  vestake stake --amount 50 --duration 30
  vestake stake --amount 1.5 --duration 2h --auto-renew`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cmd.Context(), func(a *app) error {
				if in.Duration == "" {
					in.Duration = a.cfg.Staking.DefaultDuration
				}
				if in.Amount == "" {
					if !stdinIsTTY() {
						return fmt.Errorf("--amount is required")
					}
					filled, ok, err := runStakeForm(a.cfg.Staking, in)
					if err != nil {
						return err
					}
					if !ok {
						Info("Stake cancelled")
						return nil
					}
					in = filled
				}

				if err := doStake(cmd.Context(), a, in); err != nil {
					return err
				}
				fmt.Println(renderFormState(a.form.State(), a.cfg.Staking))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Amount, "amount", "", "Amount of tokens to lock")
	cmd.Flags().StringVar(&in.Duration, "duration", "", "Lock duration (default: staking.default_duration)")
	cmd.Flags().BoolVar(&in.AutoRenew, "auto-renew", false, "Renew the lock automatically at expiry")

	return cmd
}
