package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vestake/vestake/internal/logging"
	"github.com/vestake/vestake/internal/session"
	"github.com/vestake/vestake/internal/util"
)

func NewInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Interactive staking console",
		Long: `Start an interactive console that keeps the wallet session open.

Wallet-side changes (keystore edits, RPC switching chains or going away)
disconnect the session and are reported as they happen. With the mock
chain, state persists until the console exits.

Type 'help' for available commands, 'exit' to quit.`,
		RunE: runInteractive,
	}
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a := newApp(cfg, terminalPrompt(), true)
	defer a.close()

	unsubscribe := a.session.Subscribe(func(ev session.Event) {
		fmt.Println()
		switch ev.Type {
		case session.EventConnected:
			Success(describeEvent(ev))
		default:
			Warning(describeEvent(ev))
			fmt.Println(renderConnectView(a.session, true))
		}
	})
	defer unsubscribe()

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		util.SafeGoWithName("metrics-server", func() {
			if err := a.metrics.Serve(ctx, addr); err != nil {
				logging.Warn("metrics server stopped", logging.Component("metrics"), logging.Err(err))
			}
		})
	}

	fmt.Println(StyleBoxAccent.Render(Logo() + " interactive console\n" + StyleMuted.Render("Type 'help' for commands, 'exit' to quit")))
	fmt.Println(renderConnectView(a.session, true))

	// stdin is only read on request so huh forms and password prompts get
	// the terminal while a command runs
	requests := make(chan struct{})
	defer close(requests)
	lines := make(chan string)
	util.SafeGoWithName("stdin-reader", func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for range requests {
			if !scanner.Scan() {
				return
			}
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	})

	for {
		printPrompt(a.session.IsConnected())

		select {
		case requests <- struct{}{}:
		case <-ctx.Done():
			fmt.Println()
			return nil
		}

		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Println()
				return nil
			}
			line = l
		}

		if quit := handleLine(ctx, a, strings.TrimSpace(line)); quit {
			fmt.Println("Goodbye!")
			return nil
		}
	}
}

func printPrompt(connected bool) {
	if !isTTY() {
		fmt.Print("vestake> ")
		return
	}
	if connected {
		fmt.Print(StyleSuccess.Render("vestake>") + " ")
	} else {
		fmt.Print(StyleWarning.Render("vestake (disconnected)>") + " ")
	}
}

// handleLine runs one console command and reports whether to exit.
func handleLine(ctx context.Context, a *app, line string) bool {
	if line == "" {
		return false
	}
	parts := strings.Fields(line)
	command, cmdArgs := parts[0], parts[1:]

	var err error
	switch command {
	case "exit", "quit", "q":
		return true

	case "help", "h", "?":
		printInteractiveHelp(a)

	case "connect":
		err = WithSpinner("Connecting wallet", func() error { return a.connect(ctx) })
		if err == nil {
			fmt.Println(renderConnectView(a.session, true))
			fmt.Println(renderFormState(a.form.State(), a.cfg.Staking))
		}

	case "disconnect":
		a.session.Disconnect()

	case "status":
		fmt.Println(renderConnectView(a.session, true))

	case "balance", "positions", "refresh", "show":
		if !a.session.IsConnected() {
			Error("please connect your wallet first")
			return false
		}
		_ = WithSpinner("Loading", func() error {
			a.form.Refresh(ctx)
			return nil
		})
		fmt.Println(renderFormState(a.form.State(), a.cfg.Staking))

	case "stake":
		err = interactiveStake(ctx, a, cmdArgs)

	case "withdraw":
		if len(cmdArgs) != 1 {
			Error("usage: withdraw <id>")
			return false
		}
		err = doWithdraw(ctx, a, cmdArgs[0])

	case "toggle":
		if len(cmdArgs) != 1 {
			Error("usage: toggle <id>")
			return false
		}
		if err = doToggle(ctx, a, cmdArgs[0]); err == nil {
			fmt.Println(renderPositions(a.form.State()))
		}

	case "mint":
		if err = doMint(ctx, a); err == nil {
			fmt.Println(renderBalances(a.form.State(), a.cfg.Staking))
		}

	default:
		Error(fmt.Sprintf("unknown command %q (type 'help')", command))
	}

	if err != nil {
		Error(err.Error())
	}
	return false
}

// interactiveStake takes "stake <amount> [duration] [auto]" or opens the form
func interactiveStake(ctx context.Context, a *app, args []string) error {
	in := stakeInput{Duration: a.form.State().Duration}
	if in.Duration == "" {
		in.Duration = a.cfg.Staking.DefaultDuration
	}

	if len(args) == 0 {
		if !stdinIsTTY() {
			return fmt.Errorf("usage: stake <amount> [duration] [auto]")
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
	} else {
		in.Amount = args[0]
		if len(args) > 1 {
			in.Duration = args[1]
		}
		if len(args) > 2 {
			in.AutoRenew = args[2] == "auto" || args[2] == "true" || args[2] == "yes"
		}
	}

	if err := doStake(ctx, a, in); err != nil {
		return err
	}
	fmt.Println(renderFormState(a.form.State(), a.cfg.Staking))
	return nil
}

func printInteractiveHelp(a *app) {
	unit := a.cfg.Staking.DurationUnit
	rows := [][]string{
		{"connect", "Unlock the wallet and connect"},
		{"disconnect", "Forget the connection (no transaction)"},
		{"status", "Show the connection"},
		{"balance | positions | refresh", "Reload balances and positions"},
		{"stake [amount] [duration] [auto]", fmt.Sprintf("Approve and stake; duration in %s (form when no args)", unit)},
		{"withdraw <id>", "Withdraw an expired position"},
		{"toggle <id>", "Toggle auto-renew on a position"},
		{"mint", fmt.Sprintf("Mint %s test %s", a.cfg.Staking.MintAmount, a.cfg.Staking.TokenSymbol)},
		{"exit", "Quit"},
	}
	fmt.Println(RenderTable([]string{"Command", "Description"}, rows))
}
