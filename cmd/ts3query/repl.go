// =============================================================================
// repl.go - Interactive REPL
// =============================================================================
//
// Every line that does not start with a dot is sent to the server as is and
// its response printed. Dot-commands are handled locally. Events arrive on
// the session's reader goroutine and are printed while .events is on.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/ts3query/ts3query/serverquery"
)

const prompt = "ts3> "

// lineSource is what the REPL reads from. LineEditor implements it.
type lineSource interface {
	GetLine(prompt string) (string, error)
}

type repl struct {
	app     *app
	session *serverquery.Session
	input   lineSource
	out     *printer

	events atomic.Bool
	subs   []serverquery.Subscription
}

func newREPL(a *app, session *serverquery.Session, input lineSource, out *printer) *repl {
	r := &repl{app: a, session: session, input: input, out: out}
	r.events.Store(a.cfg.REPL.Events)
	return r
}

// runREPL connects, installs signal handling and runs the loop until
// .quit, end of input or a signal.
func (a *app) runREPL(ctx context.Context) error {
	session, err := a.connect(ctx)
	if err != nil {
		return err
	}

	editor := NewLineEditor(a.stdin, a.stdout, a.cfg.REPL.HistoryFile, a.cfg.REPL.HistorySize)
	cleanup := func() {
		editor.Close()
		session.Close()
	}
	stop := setupSignalHandler(func() {
		cleanup()
		a.teardown()
		os.Exit(0)
	})
	defer stop()

	out := a.printer()
	out.printf("%s\n", welcomeBanner(session.RemoteAddr().String()))

	r := newREPL(a, session, editor, out)
	err = r.run(ctx)
	cleanup()
	return err
}

// setupSignalHandler runs cleanup on SIGINT or SIGTERM. The returned
// function uninstalls the handler.
func setupSignalHandler(cleanup func()) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigCh:
			fmt.Println()
			cleanup()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func (r *repl) subscribe() {
	events := r.session.Events()
	r.subs = append(r.subs,
		events.Server.Subscribe(func(e serverquery.ServerEvent) {
			r.printEvent(serverquery.FamilyServer, e.Notification)
		}),
		events.Text.Subscribe(func(e serverquery.TextEvent) {
			r.printEvent(serverquery.FamilyText, e.Notification)
		}),
		events.Channel.Subscribe(func(e serverquery.ChannelEvent) {
			r.printEvent(serverquery.FamilyChannel, e.Notification)
		}),
		events.Close.Subscribe(func(e serverquery.CloseEvent) {
			if e.Err != nil {
				r.out.errorf("disconnected: %v", e.Err)
			}
		}),
	)
}

func (r *repl) unsubscribe() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *repl) printEvent(family string, n serverquery.Notification) {
	if r.events.Load() {
		r.out.event(family, n)
	}
}

// run is the read-eval-print loop.
func (r *repl) run(ctx context.Context) error {
	r.subscribe()
	defer r.unsubscribe()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.input.GetLine(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.out.println()
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if quit := r.handleDotCommand(line); quit {
				return nil
			}
			continue
		}

		r.execute(ctx, line)
	}
}

// execute sends one raw line and prints its response.
func (r *repl) execute(ctx context.Context, line string) {
	p, err := r.session.Send(line, nil)
	if err != nil {
		r.out.errorf("%v", err)
		return
	}

	waitCtx, cancel := r.app.commandContext(ctx)
	defer cancel()

	resp, err := p.Wait(waitCtx)
	var statusErr *serverquery.StatusError
	switch {
	case err == nil, errors.As(err, &statusErr):
		if perr := r.out.response(resp); perr != nil {
			r.out.errorf("%v", perr)
		}
	default:
		r.out.errorf("%v", err)
	}
}

// handleDotCommand runs a local command and reports whether the REPL
// should exit.
func (r *repl) handleDotCommand(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case ".quit", ".exit":
		return true

	case ".help":
		r.out.mu.Lock()
		printHelp(r.out.out, r.out.errOut, arg)
		r.out.mu.Unlock()

	case ".events":
		switch strings.ToLower(arg) {
		case "":
		case "on":
			r.events.Store(true)
		case "off":
			r.events.Store(false)
		default:
			r.out.errorf("usage: .events [on|off]")
			return false
		}
		r.out.printf("Event printing is %s\n", onOff(r.events.Load()))

	case ".pending":
		r.out.printf("%d pending\n", r.session.PendingCount())

	case ".status":
		remote := "-"
		if addr := r.session.RemoteAddr(); addr != nil {
			remote = addr.String()
		}
		r.out.printf("State:   %s\nServer:  %s\nPending: %d\n",
			r.session.State(), remote, r.session.PendingCount())

	default:
		r.out.errorf("Unknown command '%s'. Type .help to see available commands.", name)
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
