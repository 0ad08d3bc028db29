// =============================================================================
// watch.go - Event Streaming
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ts3query/ts3query/serverquery"
)

// channelScoped events need a channel id; 0 means every channel.
var channelScoped = map[string]bool{
	"channel":     true,
	"textchannel": true,
}

type watchOptions struct {
	register []string
	login    string
	password string
	serverID int
}

func newWatchCommand(a *app) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Register for events and print them until interrupted",
		Long: `Register for event notifications and print every event as it arrives.

Each --register value is sent as "servernotifyregister event=<value>".
On SIGINT or SIGTERM the commands still in flight are awaited and the
connection is closed gracefully.`,
		Example: `  ts3query watch --login serveradmin --password secret --sid 1
  ts3query --json watch --register textserver --register server`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.register, "register", "r", []string{"server", "textserver"}, "event to register for, repeatable")
	cmd.Flags().StringVar(&opts.login, "login", "", "query login name")
	cmd.Flags().StringVar(&opts.password, "password", "", "query login password")
	cmd.Flags().IntVar(&opts.serverID, "sid", 0, "virtual server to select before registering")
	return cmd
}

type step struct {
	command string
	fields  serverquery.Fields
}

// setupCommands returns the login, use and register commands to send
// before watching.
func (o watchOptions) setupCommands() []step {
	var steps []step

	if o.login != "" {
		steps = append(steps, step{"login", serverquery.Fields{
			"client_login_name":     o.login,
			"client_login_password": o.password,
		}})
	}
	if o.serverID > 0 {
		steps = append(steps, step{"use", serverquery.Fields{"sid": o.serverID}})
	}
	for _, event := range o.register {
		fields := serverquery.Fields{"event": event}
		if channelScoped[event] {
			fields["id"] = 0
		}
		steps = append(steps, step{"servernotifyregister", fields})
	}
	return steps
}

func (a *app) runWatch(ctx context.Context, opts watchOptions) error {
	session, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	out := a.printer()
	closed := make(chan error, 1)

	events := session.Events()
	subs := []serverquery.Subscription{
		events.Server.Subscribe(func(e serverquery.ServerEvent) { out.event(serverquery.FamilyServer, e.Notification) }),
		events.Text.Subscribe(func(e serverquery.TextEvent) { out.event(serverquery.FamilyText, e.Notification) }),
		events.Channel.Subscribe(func(e serverquery.ChannelEvent) { out.event(serverquery.FamilyChannel, e.Notification) }),
		events.Close.Subscribe(func(e serverquery.CloseEvent) { closed <- e.Err }),
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	// Setup commands finish even if a signal arrives meanwhile.
	for _, step := range opts.setupCommands() {
		waitCtx, cancel := a.commandContext(context.WithoutCancel(ctx))
		_, err := session.Exec(waitCtx, step.command, step.fields)
		cancel()
		if err != nil {
			return fmt.Errorf("%s: %w", step.command, err)
		}
	}

	select {
	case <-ctx.Done():
		waitCtx, cancel := a.commandContext(context.Background())
		defer cancel()
		return session.WaitAndClose(waitCtx)
	case err := <-closed:
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		return nil
	}
}
