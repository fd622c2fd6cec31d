package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func doMint(ctx context.Context, a *app) error {
	symbol := a.cfg.Staking.TokenSymbol
	amount := a.cfg.Staking.MintAmount
	if err := WithSpinner(fmt.Sprintf("Minting %s %s", amount, symbol), func() error { return a.form.Mint(ctx) }); err != nil {
		return err
	}
	Success(fmt.Sprintf("Minted %s %s", amount, symbol))
	return nil
}

func NewMintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint",
		Short: "Mint test tokens to the connected wallet",
		Long:  "Mint staking.mint_amount test tokens to the connected account. Only works against a mintable test token.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnectedApp(cmd.Context(), func(a *app) error {
				if err := doMint(cmd.Context(), a); err != nil {
					return err
				}
				fmt.Println(renderBalances(a.form.State(), a.cfg.Staking))
				return nil
			})
		},
	}
}
