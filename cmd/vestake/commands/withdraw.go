package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func doWithdraw(ctx context.Context, a *app, id string) error {
	a.form.SetWithdrawID(id)
	if err := WithSpinner("Withdrawing position "+id, func() error { return a.form.Withdraw(ctx, id) }); err != nil {
		return err
	}
	Success("Withdrew position " + id)
	if tx := a.form.State().LastTx; tx != "" {
		fmt.Println(KeyValue("Transaction", FormatHash(tx)))
	}
	return nil
}

func NewWithdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <id>",
		Short: "Withdraw an expired staking position",
		Long: `Release the tokens of an expired position back to the wallet.

Auto-renewing positions must have auto-renew turned off first (vestake toggle <id>).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cmd.Context(), func(a *app) error {
				if err := doWithdraw(cmd.Context(), a, args[0]); err != nil {
					return err
				}
				fmt.Println(renderFormState(a.form.State(), a.cfg.Staking))
				return nil
			})
		},
	}
}
