package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type statusOutput struct {
	Connected bool   `json:"connected"`
	Account   string `json:"account,omitempty"`
	ChainID   string `json:"chain_id,omitempty"`
	Mock      bool   `json:"mock"`
	Error     string `json:"error,omitempty"`
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Connect the wallet and show the connection",
		Long: `Unlock the keystore wallet, connect to the configured chain and show the
connected account. Nothing is signed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			a := newApp(cfg, terminalPrompt(), false)
			connectErr := a.connect(cmd.Context())
			defer a.close()

			if jsonOutput() {
				out := statusOutput{Mock: cfg.Chain.Mock}
				if conn := a.session.Connection(); conn != nil {
					out.Connected = true
					out.Account = conn.Account.Hex()
					out.ChainID = conn.ChainID.String()
				}
				if connectErr != nil {
					out.Error = connectErr.Error()
				}
				return json.NewEncoder(os.Stdout).Encode(out)
			}

			fmt.Println(renderConnectView(a.session, false))
			return connectErr
		},
	}
}
