// =============================================================================
// exec.go - One-Shot Command Execution
// =============================================================================

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ts3query/ts3query/serverquery"
)

func newExecCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <command> [key=value | --flag]...",
		Short: "Run a single command and print its response",
		Long: `Run a single ServerQuery command and print its response.

Parameters are given as key=value and are escaped before sending. Options
are given as --name and sent as --name switches. Everything
after the command name is passed through, so root flags must come first.

The exit code is 1 when the server answers with an error status.`,
		Example: `  ts3query exec version
  ts3query --json exec clientlist --uid --away
  ts3query exec sendtextmessage targetmode=3 target=1 "msg=Hello World"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args[1:])
			if err != nil {
				return err
			}
			return a.runExec(cmd.Context(), args[0], fields)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// parseFields turns command-line parameters into command fields.
func parseFields(args []string) (serverquery.Fields, error) {
	fields := serverquery.Fields{}
	for _, arg := range args {
		if name, ok := strings.CutPrefix(arg, "--"); ok {
			if name == "" {
				return nil, fmt.Errorf("invalid parameter %q", arg)
			}
			fields[name] = true
			continue
		}
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q: want key=value or --flag", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

func (a *app) runExec(ctx context.Context, command string, fields serverquery.Fields) error {
	session, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer session.Close()

	waitCtx, cancel := a.commandContext(ctx)
	defer cancel()

	resp, err := session.Exec(waitCtx, command, fields)
	if resp != nil {
		if perr := a.printer().response(resp); perr != nil {
			return perr
		}
	}
	return err
}
