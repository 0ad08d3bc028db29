// Package serverquery implements a client for the TeamSpeak 3 ServerQuery
// text protocol.
//
// Protocol Format:
//
//	Request (Client -> Server):  <command>[ --<flag>]*[ <key>=<value>]*\n\r
//	Data line:                   key=value key=value|key=value key=value\n\r
//	Status line:                 error id=<code> msg=<message>\n\r
//	Event:                       notify<name> key=value ...\n\r
//
// Example Session:
//
//	SRV: TS3
//	SRV: Welcome to the TeamSpeak 3 ServerQuery interface, ...
//	CLI: use sid=1
//	SRV: error id=0 msg=ok
//	CLI: clientlist
//	SRV: clid=1 cid=1 client_nickname=serveradmin|clid=2 cid=1 client_nickname=alice
//	SRV: error id=0 msg=ok
package serverquery

import "time"

// Protocol constants.
const (
	// LineTerminator ends every command, response and event line. The order
	// is newline then carriage return.
	LineTerminator = "\n\r"

	// BannerMarker is the prefix of the first line a ServerQuery server sends.
	BannerMarker = "TS3"

	// EventMarker identifies event notification names.
	EventMarker = "notify"

	// DefaultPort is the default ServerQuery TCP port.
	DefaultPort = 10011

	// DefaultHost is used when Connect is called with an empty host.
	DefaultHost = "localhost"

	// DefaultBannerLines is the number of lines the server sends after
	// accepting a connection ("TS3" and the welcome text).
	DefaultBannerLines = 2

	// DefaultReadBufferSize is the size of a single transport read.
	DefaultReadBufferSize = 4096

	// ConnectionTimeout is the default timeout for establishing connections.
	ConnectionTimeout = 5 * time.Second

	// StatusOK is the message of a successful status line.
	StatusOK = "ok"

	// ParseErrorCode and ParseErrorMessage form the status reported for a
	// status line that could not be parsed.
	ParseErrorCode    = -1
	ParseErrorMessage = "Parsing error!"
)
