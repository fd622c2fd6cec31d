package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/identity"
)

// NewWalletCmd creates the wallet command group
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the staking wallet",
		Long: `Manage the Ethereum wallet that signs approvals, stakes and withdrawals.

The wallet is stored as an encrypted keystore file (geth V3 format).
These commands operate directly on keystore files and never touch the chain.

The wallet password is looked up in this order when connecting:
  platform keyring (macOS Keychain, GNOME Keyring / KDE Wallet)
  Linux kernel keyring (volatile, lost on reboot)
  ` + config.PasswordEnvVar + ` environment variable
  wallet.password_file from config.yaml
  terminal prompt

Examples:
  vestake wallet create   # Generate a new wallet
  vestake wallet import   # Import from a private key
  vestake wallet show     # Show address and keystore path
  vestake wallet export   # Export private key (use with caution)`,
	}

	cmd.AddCommand(newWalletCreateCmd())
	cmd.AddCommand(newWalletImportCmd())
	cmd.AddCommand(newWalletShowCmd())
	cmd.AddCommand(newWalletExportCmd())
	cmd.AddCommand(newWalletForgetPasswordCmd())

	return cmd
}

func defaultKeystoreDir() string {
	return loadConfigQuiet().Wallet.KeystoreDir
}

// storePasswordInKeyring stores the wallet password in the best available
// keyring, or prints the manual alternatives.
func storePasswordInKeyring(account common.Address, password string) {
	if backend, err := identity.StoreWalletPassword(account, password); err == nil {
		fmt.Printf("  Password saved to %s\n", backend)
		fmt.Println("  The wallet will be unlocked automatically on connect.")
		return
	}

	if err := identity.StoreKernelKeyring(account, password); err == nil {
		fmt.Println("  Password saved to kernel keyring (in-memory, lost on reboot)")
		fmt.Println("  The wallet will be unlocked automatically until next reboot.")
		return
	}

	fmt.Println("  Could not store password in system keyring.")
	fmt.Println("  For automatic wallet unlock, set one of:")
	fmt.Println("    - " + config.PasswordEnvVar + " environment variable")
	fmt.Println("    - wallet.password_file in config.yaml")
	fmt.Println("  Otherwise you will be prompted on connect.")
}

// existingWallet returns the keystore's wallet, nil if there is none
func existingWallet(keystoreDir string) (*identity.WalletManager, error) {
	wm, err := identity.LoadWalletManager(keystoreDir)
	if errors.Is(err, identity.ErrNoWallet) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check keystore: %w", err)
	}
	return wm, nil
}

// readNewPassword prompts for a password twice, up to three attempts
func readNewPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprint(os.Stderr, "Enter wallet password: ")
		password, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if err := validateNewPassword(password); err != nil {
			Warning(fmt.Sprintf("Invalid password: %v. Try again.", err))
			continue
		}

		fmt.Fprint(os.Stderr, "Confirm wallet password: ")
		confirm, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if password != confirm {
			Warning("Passwords do not match. Try again.")
			continue
		}
		return password, nil
	}
	return "", fmt.Errorf("too many failed attempts")
}

func validateNewPassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("must be at least 8 characters")
	}
	return nil
}

func newWalletCreateCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		Long:  "Create a new Ethereum wallet with a password-encrypted keystore file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := existingWallet(keystoreDir)
			if err != nil {
				return err
			}
			if wm != nil {
				return fmt.Errorf("wallet already exists at %s (address: %s)", keystoreDir, wm.Address().Hex())
			}

			password, err := readNewPassword()
			if err != nil {
				return err
			}

			wm, err = identity.CreateWalletManager(keystoreDir, password)
			if err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}

			fmt.Println()
			Success("Wallet created!")
			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", wm.Address().Hex()},
				{"Keystore", keystoreDir},
			}))
			storePasswordInKeyring(wm.Address(), password)
			fmt.Println()
			Warning("Back up your keystore directory and remember your password.")
			fmt.Println(Hint("If you lose either, your staked funds are unrecoverable."))
			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", defaultKeystoreDir(), "Path to keystore directory")

	return cmd
}

func newWalletImportCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a wallet from a private key",
		Long:  "Import an existing Ethereum private key into an encrypted keystore file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := existingWallet(keystoreDir)
			if err != nil {
				return err
			}
			if wm != nil {
				return fmt.Errorf("wallet already exists at %s (address: %s)", keystoreDir, wm.Address().Hex())
			}

			const maxAttempts = 3
			var privKeyHex string
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				fmt.Fprint(os.Stderr, "Enter private key (hex, with or without 0x prefix): ")
				input, err := readPasswordNoEcho()
				if err != nil {
					return fmt.Errorf("failed to read private key: %w", err)
				}
				fmt.Fprintln(os.Stderr)

				input = strings.TrimPrefix(strings.TrimSpace(input), "0x")
				if len(input) != 64 {
					Warning(fmt.Sprintf("Private key must be 64 hex characters (32 bytes), got %d. Try again.", len(input)))
					continue
				}
				privKeyHex = input
				break
			}
			if privKeyHex == "" {
				return fmt.Errorf("too many failed attempts")
			}

			password, err := readNewPassword()
			if err != nil {
				return err
			}

			wm, err = identity.ImportWalletManager(keystoreDir, privKeyHex, password)
			if err != nil {
				return fmt.Errorf("failed to import wallet: %w", err)
			}

			fmt.Println()
			Success("Wallet imported!")
			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", wm.Address().Hex()},
				{"Keystore", keystoreDir},
			}))
			storePasswordInKeyring(wm.Address(), password)
			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", defaultKeystoreDir(), "Path to keystore directory")

	return cmd
}

func newWalletShowCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show wallet address and keystore path",
		Long:  "Display the wallet address and keystore directory. No password needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := existingWallet(keystoreDir)
			if err != nil {
				return err
			}
			if wm == nil {
				Info("No wallet found.")
				fmt.Println(Hint("Create one with: vestake wallet create"))
				return nil
			}

			pwStatus := "not stored (prompted on connect)"
			if pw, err := identity.RetrieveWalletPassword(wm.Address()); err == nil && pw != "" {
				pwStatus = "stored in platform keyring"
			} else if pw, err := identity.RetrieveKernelKeyring(wm.Address()); err == nil && pw != "" {
				pwStatus = "stored in kernel keyring"
			} else if os.Getenv(config.PasswordEnvVar) != "" {
				pwStatus = "from " + config.PasswordEnvVar
			}

			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", wm.Address().Hex()},
				{"Keystore", keystoreDir},
				{"Password", pwStatus},
			}))

			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", defaultKeystoreDir(), "Path to keystore directory")

	return cmd
}

func newWalletExportCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the wallet's private key",
		Long: `Export the wallet's private key in hex format.

WARNING: The private key controls all funds and positions of this wallet.
Never share it, and clear your terminal history after use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wm, err := identity.LoadWalletManager(keystoreDir)
			if err != nil {
				return fmt.Errorf("failed to load wallet from %s: %w", keystoreDir, err)
			}

			fmt.Fprintf(os.Stderr, "WARNING: This will display your private key in plain text.\n")
			fmt.Fprintf(os.Stderr, "Anyone with this key can withdraw all funds in this wallet.\n\n")

			fmt.Fprint(os.Stderr, "Enter wallet password: ")
			password, err := readPasswordNoEcho()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			fmt.Fprintln(os.Stderr)

			keyHex, err := wm.ExportKeyHex(password)
			if err != nil {
				return fmt.Errorf("failed to export key (wrong password?): %w", err)
			}

			fmt.Println()
			fmt.Printf("Address:     %s\n", wm.Address().Hex())
			fmt.Printf("Private Key: %s\n", keyHex)
			fmt.Println()
			fmt.Fprintln(os.Stderr, "Clear your terminal history: history -c && history -w")

			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", defaultKeystoreDir(), "Path to keystore directory")

	return cmd
}

func newWalletForgetPasswordCmd() *cobra.Command {
	var keystoreDir string

	cmd := &cobra.Command{
		Use:   "forget-password",
		Short: "Remove the wallet password from the system keyring",
		Long: `Remove the wallet's stored password from the platform keyring and kernel keyring.

After this, connecting requires ` + config.PasswordEnvVar + `, a password file,
or the terminal prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, ok := identity.PrimaryAccount(keystoreDir)
			if !ok {
				Info("No wallet found.")
				return nil
			}

			removed := false
			if pw, err := identity.RetrieveWalletPassword(account); err == nil && pw != "" {
				if err := identity.DeleteWalletPassword(account); err != nil {
					return fmt.Errorf("failed to remove password from platform keyring: %w", err)
				}
				fmt.Println("Removed password from platform keyring")
				removed = true
			}
			if pw, err := identity.RetrieveKernelKeyring(account); err == nil && pw != "" {
				if err := identity.DeleteKernelKeyring(account); err != nil {
					return fmt.Errorf("failed to remove password from kernel keyring: %w", err)
				}
				fmt.Println("Removed password from kernel keyring")
				removed = true
			}

			if !removed {
				fmt.Printf("No stored password found for %s.\n", account.Hex())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&keystoreDir, "keystore", defaultKeystoreDir(), "Path to keystore directory")

	return cmd
}

// readPasswordNoEcho reads a line from stdin with echo disabled.
func readPasswordNoEcho() (string, error) {
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(password), nil
}
