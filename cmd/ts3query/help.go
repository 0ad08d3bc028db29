// =============================================================================
// help.go - REPL Help System
// =============================================================================
//
//   - ".help"         lists the dot-commands and common server commands
//   - ".help <topic>" prints detailed help for one of them
//
// Server commands are forwarded to the server untouched, so the server's
// own "help <command>" remains the reference for them. The entries below
// only cover what is needed to get started.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// localHelp documents the dot-commands handled by the REPL itself.
var localHelp = map[string]string{
	"help": `.help [topic]
  Show the command overview, or detailed help for a topic.
  Example: .help clientlist`,

	"quit": `.quit
  Close the connection gracefully and exit. Ctrl-D does the same.`,

	"events": `.events [on|off]
  Turn printing of event notifications on or off. Without an argument,
  show the current setting. Register for events first, for example:
    servernotifyregister event=server`,

	"pending": `.pending
  Show how many commands are still waiting for a response.`,

	"status": `.status
  Show the connection state, the server address and the number of
  pending commands.`,
}

// serverHelp documents frequently used ServerQuery commands.
var serverHelp = map[string]string{
	"login": `login <username> <password>
  Authenticate with ServerQuery credentials.
  Example: login serveradmin secret`,

	"use": `use sid=<id> | use port=<port>
  Select the virtual server for subsequent commands.
  Example: use sid=1`,

	"version": `version
  Show the server version, build and platform.`,

	"whoami": `whoami
  Show information about the current query client.`,

	"serverinfo": `serverinfo
  Show the configuration of the selected virtual server.`,

	"clientlist": `clientlist [-uid] [-away] [-voice] [-groups]
  List the clients on the selected virtual server.
  The REPL sends lines verbatim, so use the server's option syntax.`,

	"channellist": `channellist [-topic] [-flags]
  List the channels on the selected virtual server.`,

	"sendtextmessage": `sendtextmessage targetmode=<1|2|3> target=<id> msg=<text>
  Send a text message. Escape spaces in msg as \s.
  Example: sendtextmessage targetmode=3 target=1 msg=Hello\sWorld`,

	"servernotifyregister": `servernotifyregister event=<server|channel|textserver|textchannel|textprivate> [id=<cid>]
  Subscribe to event notifications. Events are printed as they arrive
  while .events is on.`,
}

// printHelp displays the overview, or detailed help for topic.
func printHelp(out, errOut io.Writer, topic string) {
	if topic == "" {
		printHelpOverview(out)
		return
	}

	key := strings.TrimPrefix(strings.ToLower(topic), ".")
	if text, ok := localHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}
	if text, ok := serverHelp[key]; ok {
		fmt.Fprintln(out, text)
		return
	}

	fmt.Fprintf(errOut, "Error: No help for '%s'. Type .help to see available commands.\n", topic)
}

func printHelpOverview(out io.Writer) {
	fmt.Fprintln(out, "Local commands:")
	for _, name := range []string{"help", "quit", "events", "pending", "status"} {
		fmt.Fprintf(out, "  .%-22s %s\n", name, summary(localHelp[name]))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Common server commands (sent verbatim):")
	names := make([]string, 0, len(serverHelp))
	for name := range serverHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-23s %s\n", name, summary(serverHelp[name]))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Type '.help <topic>' for details, or 'help' for the server's own help.")
}

// summary returns the first line of the description below the synopsis.
func summary(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}
