package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show token and staked balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cmd.Context(), func(a *app) error {
				if err := a.form.LoadBalances(cmd.Context()); err != nil {
					return fmt.Errorf("failed to load balances: %w", err)
				}
				st := a.form.State()

				if jsonOutput() {
					return json.NewEncoder(os.Stdout).Encode(st.Balances)
				}
				fmt.Println(renderBalances(st, a.cfg.Staking))
				return nil
			})
		},
	}
}
