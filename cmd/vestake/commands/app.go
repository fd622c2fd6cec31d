package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"

	"github.com/vestake/vestake/internal/config"
	"github.com/vestake/vestake/internal/metrics"
	"github.com/vestake/vestake/internal/session"
	"github.com/vestake/vestake/internal/staking"
)

// app bundles the session, the staking form and metrics for one process.
type app struct {
	cfg     *config.Config
	session *session.Session
	form    *staking.Form
	metrics *metrics.PrometheusCollector
}

var _ staking.Recorder = (*metrics.PrometheusCollector)(nil)

// newApp wires a session and form from cfg. watch enables wallet-side event
// detection, which only long-running commands need.
func newApp(cfg *config.Config, prompt session.PromptFunc, watch bool) *app {
	return newAppWithConnector(cfg, session.NewWalletConnector(cfg, prompt), watch)
}

func newAppWithConnector(cfg *config.Config, connector session.Connector, watch bool) *app {
	var opts []session.Option
	if watch {
		opts = append(opts, session.WithWatcher(session.WatcherConfig{
			WatchKeystore:   cfg.Events.WatchKeystore,
			PollInterval:    cfg.ChainPollInterval(),
			MaxPollFailures: cfg.Events.MaxPollFailures,
		}))
	}

	sess := session.New(connector, opts...)
	form := staking.NewForm(staking.FromSession(sess), staking.OptionsFromConfig(cfg.Staking))

	collector := metrics.NewPrometheusCollector(metrics.NewCollector())
	form.SetRecorder(collector)

	a := &app{cfg: cfg, session: sess, form: form, metrics: collector}
	sess.Subscribe(a.onSessionEvent)
	return a
}

// onSessionEvent keeps the form and metrics in step with the session
func (a *app) onSessionEvent(ev session.Event) {
	switch ev.Type {
	case session.EventConnected:
		a.metrics.SetConnected(true)
	default:
		a.metrics.SetConnected(false)
		a.form.Reset()
	}
}

// connect unlocks the wallet and loads balances and positions
func (a *app) connect(ctx context.Context) error {
	if err := a.session.Connect(ctx); err != nil {
		return describeConnectError(err)
	}
	a.form.Refresh(ctx)
	return nil
}

func (a *app) close() {
	a.session.Disconnect()
}

// describeConnectError adds a next step to the errors users can fix
func describeConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrNoWallet):
		return fmt.Errorf("%w (create one with: vestake wallet create)", err)
	case errors.Is(err, session.ErrUserRejected):
		return fmt.Errorf("%w (set %s or store the password with: vestake wallet create)", err, config.PasswordEnvVar)
	}
	return err
}

// terminalPrompt asks for the wallet password on the controlling terminal.
// It returns nil when stdin is not a terminal so non-interactive runs fail
// fast instead of blocking.
func terminalPrompt() session.PromptFunc {
	if !stdinIsTTY() {
		return nil
	}
	return func(account common.Address) (string, error) {
		fmt.Fprintf(os.Stderr, "Unlock %s, password: ", FormatAddress(account.Hex()))
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
}

// withConnectedApp runs fn against a freshly connected app and
// disconnects afterwards.
func withConnectedApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a := newApp(cfg, terminalPrompt(), false)
	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.close()

	if cfg.Chain.Mock && !jsonOutput() {
		fmt.Println(Hint("mock chain: state lasts for this process only; use 'vestake interactive' to keep it"))
	}
	return fn(a)
}
