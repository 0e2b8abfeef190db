package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"agentmarket/internal/apiclient"
	"agentmarket/internal/auth"
)

// quietPeriod is how long flush waits for further events before returning.
const quietPeriod = 150 * time.Millisecond

// errReported marks failures already shown to the user as a notice.
var errReported = errors.New("already reported")

// app is one CLI invocation: an API client and the session context that
// owns it.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	client *apiclient.Client
	auth   *auth.Manager
	events <-chan auth.Event
	stop   func()
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("AGENTMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Browse and publish AI agents on the marketplace",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("url", "http://localhost:8080", "marketplace API base URL (AGENTMARKET_URL)")
	root.PersistentFlags().String("session-file", defaultSessionFile(), "where the session is kept (AGENTMARKET_SESSION_FILE)")
	root.PersistentFlags().String("site-url", "http://localhost:3000", "front-end URL used in password reset links (AGENTMARKET_SITE_URL)")
	v.BindPFlags(root.PersistentFlags())

	run := func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, v)
			if err != nil {
				return err
			}
			defer a.close()
			return fn(cmd.Context(), a, args)
		}
	}

	root.AddCommand(authCommands(run)...)
	root.AddCommand(agentsCommand(run), categoriesCommand(run))
	return root
}

// runFunc adapts an app-level command body to cobra.
type runFunc func(fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".agentmarket-session.json"
	}
	return filepath.Join(dir, "agentmarket", "session.json")
}

func openApp(cmd *cobra.Command, v *viper.Viper) (*app, error) {
	client := apiclient.New(v.GetString("url"), apiclient.WithSessionFile(v.GetString("session-file")))
	mgr := auth.New(client, auth.WithResetRedirect(strings.TrimRight(v.GetString("site-url"), "/")+"/reset-password"))

	a := &app{in: cmd.InOrStdin(), out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), client: client, auth: mgr}
	a.events, a.stop = mgr.Subscribe()

	if err := mgr.Start(cmd.Context()); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// close prints outstanding events and releases the session context. The
// session file stays on disk for the next invocation.
func (a *app) close() {
	a.flush()
	a.stop()
	a.auth.Close()
	a.client.Close()
}

// flush prints events until none arrive for quietPeriod.
func (a *app) flush() {
	for {
		select {
		case e, ok := <-a.events:
			if !ok {
				return
			}
			a.print(e)
		case <-time.After(quietPeriod):
			return
		}
	}
}

func (a *app) print(e auth.Event) {
	switch e.Kind {
	case auth.EventNotice:
		if e.Level == auth.NoticeError {
			fmt.Fprintln(a.errOut, "error:", e.Message)
			return
		}
		fmt.Fprintln(a.out, e.Message)
	case auth.EventNavigate:
		fmt.Fprintln(a.out, "next:", e.Path)
	}
}
