// Package querytest provides a scripted ServerQuery server for tests.
package querytest

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	// Terminator is the ServerQuery line terminator.
	Terminator = "\n\r"

	// DefaultBanner is what a TeamSpeak 3 server sends on connect.
	DefaultBanner = "TS3" + Terminator +
		"Welcome to the TeamSpeak 3 ServerQuery interface, type \"help\" for a list of commands and \"help <command>\" for information on a specific command." + Terminator

	// OK is the success status line.
	OK = "error id=0 msg=ok" + Terminator
)

// Handler returns the raw reply for a command line (without terminator).
// An empty reply sends nothing, leaving the command pending.
type Handler func(cmd string) string

// Server is a TCP listener speaking just enough ServerQuery for tests.
type Server struct {
	listener net.Listener
	banner   string
	handler  Handler

	mu          sync.Mutex
	connections []net.Conn
	commands    []string
	connected   chan struct{}

	wg sync.WaitGroup
}

// Start starts a server with DefaultBanner. A nil handler answers every
// command with OK.
func Start(t testing.TB, handler Handler) *Server {
	return StartWithBanner(t, DefaultBanner, handler)
}

// StartWithBanner starts a server that greets clients with banner.
func StartWithBanner(t testing.TB, banner string, handler Handler) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to create server listener")

	if handler == nil {
		handler = func(string) string { return OK }
	}

	s := &Server{
		listener:  listener,
		banner:    banner,
		handler:   handler,
		connected: make(chan struct{}, 16),
	}

	s.wg.Add(1)
	go s.acceptLoop()

	t.Cleanup(s.Stop)
	return s
}

// Port returns the listening port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Host returns the listening host.
func (s *Server) Host() string {
	return s.listener.Addr().(*net.TCPAddr).IP.String()
}

// Connected is signalled once per accepted connection, after the banner
// has been written.
func (s *Server) Connected() <-chan struct{} {
	return s.connected
}

// Commands returns every command line received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Push writes raw data to every open connection. Use it for events and
// for replies split across several writes.
func (s *Server) Push(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.connections {
		fmt.Fprint(conn, raw)
	}
}

// Drop closes every open connection from the server side.
func (s *Server) Drop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.connections {
		conn.Close()
	}
	s.connections = nil
}

// Stop closes the listener and all connections and waits for the server
// goroutines.
func (s *Server) Stop() {
	s.listener.Close()
	s.Drop()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		s.connections = append(s.connections, conn)
		if s.banner != "" {
			fmt.Fprint(conn, s.banner)
		}
		s.mu.Unlock()

		select {
		case s.connected <- struct{}{}:
		default:
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	scanner := bufio.NewScanner(conn)
	scanner.Split(ScanLines)
	for scanner.Scan() {
		cmd := scanner.Text()

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		if reply := s.handler(cmd); reply != "" {
			s.mu.Lock()
			fmt.Fprint(conn, reply)
			s.mu.Unlock()
		}
	}
}

// ScanLines is a bufio.SplitFunc for "\n\r" terminated lines.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.Index(data, []byte(Terminator)); i >= 0 {
		return i + len(Terminator), data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Reply builds a response unit from a data line and a status line.
func Reply(data string) string {
	return data + Terminator + OK
}

// Error builds a failing status line.
func Error(code int, msg string) string {
	return fmt.Sprintf("error id=%d msg=%s%s", code, strings.ReplaceAll(msg, " ", `\s`), Terminator)
}
