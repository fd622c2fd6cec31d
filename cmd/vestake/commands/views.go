package commands

import (
	"fmt"
	"strings"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/session"
	"github.com/vestake/vestake/internal/staking"
)

// renderConnectView shows the connected account or the connect hint
func renderConnectView(sess *session.Session, interactive bool) string {
	conn := sess.Connection()
	if conn == nil {
		hint := "Connect Wallet: vestake status"
		if interactive {
			hint = "Connect Wallet: type 'connect'"
		}
		return StatusBox("Wallet", [][2]string{
			{"Status", StatusBadge("disconnected")},
		}) + "\n" + Hint(hint)
	}

	fields := [][2]string{
		{"Status", StatusBadge("connected")},
		{"Account", conn.Account.Hex()},
		{"Chain ID", conn.ChainID.String()},
		{"Token", conn.Token.Address().Hex()},
		{"Staking", conn.Staking.Address().Hex()},
	}
	if conn.Mock {
		fields = append(fields, [2]string{"Mode", StatusBadge("mock")})
	}
	out := StatusBox("Wallet", fields)
	if interactive {
		out += "\n" + Hint("Disconnect: type 'disconnect'")
	}
	return out
}

// renderBalances shows the token and staked balance lines
func renderBalances(st staking.State, cfg config.StakingConfig) string {
	return StatusBox("Balances", [][2]string{
		{cfg.TokenSymbol + " Balance", st.Balances.TokenBalance},
		{"Staked " + cfg.StakedSymbol, st.Balances.StakedAmount},
	})
}

// renderPositions shows the open positions table
func renderPositions(st staking.State) string {
	if len(st.Positions) == 0 {
		return Hint("No open positions")
	}

	rows := make([][]string, 0, len(st.Positions))
	for _, p := range st.Positions {
		renew := "no"
		if p.AutoRenew {
			renew = "yes"
		}
		rows = append(rows, []string{
			p.ID,
			p.Amount,
			p.StartText,
			p.EndText,
			fmt.Sprintf("%d", p.NumWeeks),
			renew,
		})
	}
	return RenderTable([]string{"ID", "Amount", "Start", "End", "Weeks", "Auto-Renew"}, rows)
}

// renderFormState shows the full staking view
func renderFormState(st staking.State, cfg config.StakingConfig) string {
	var sb strings.Builder
	sb.WriteString(renderBalances(st, cfg))
	sb.WriteString("\n")
	sb.WriteString(SectionHeader("Positions"))
	sb.WriteString("\n")
	sb.WriteString(renderPositions(st))
	if st.Loading {
		sb.WriteString("\n" + Hint("Loading..."))
	}
	if st.Err != "" {
		sb.WriteString("\n" + StyleError.Render("  "+st.Err))
	}
	return sb.String()
}

// describeEvent turns a session event into a one-line notice
func describeEvent(ev session.Event) string {
	switch ev.Type {
	case session.EventConnected:
		return fmt.Sprintf("Connected as %s", ev.Account.Hex())
	case session.EventDisconnected:
		if ev.Reason != "" {
			return "Disconnected: " + ev.Reason
		}
		return "Disconnected"
	case session.EventAccountChanged:
		return fmt.Sprintf("Account changed to %s; reconnect to continue", ev.Account.Hex())
	case session.EventChainChanged:
		id := "unknown"
		if ev.ChainID != nil {
			id = ev.ChainID.String()
		}
		return fmt.Sprintf("Chain changed to %s; reconnect to continue", id)
	}
	return ev.Type.String()
}

// durationLabel names the unit the stake duration is entered in
func durationLabel(cfg config.StakingConfig) string {
	return fmt.Sprintf("Duration (%s)", cfg.DurationUnit)
}
