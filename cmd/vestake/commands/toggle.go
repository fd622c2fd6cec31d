package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func doToggle(ctx context.Context, a *app, id string) error {
	if err := WithSpinner("Toggling auto-renew on position "+id, func() error { return a.form.ToggleAutoRenew(ctx, id) }); err != nil {
		return err
	}
	Success("Toggled auto-renew on position " + id)
	return nil
}

func NewToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Turn auto-renew on or off for a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cmd.Context(), func(a *app) error {
				if err := doToggle(cmd.Context(), a, args[0]); err != nil {
					return err
				}
				fmt.Println(renderPositions(a.form.State()))
				return nil
			})
		},
	}
}
