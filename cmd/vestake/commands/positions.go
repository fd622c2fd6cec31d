package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewPositionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "positions",
		Aliases: []string{"locks"},
		Short:   "List open staking positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cmd.Context(), func(a *app) error {
				if err := a.form.LoadPositions(cmd.Context()); err != nil {
					return fmt.Errorf("failed to load positions: %w", err)
				}
				st := a.form.State()

				if jsonOutput() {
					return json.NewEncoder(os.Stdout).Encode(st.Positions)
				}
				fmt.Println(renderPositions(st))
				return nil
			})
		},
	}
}
