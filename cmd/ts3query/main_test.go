package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts3query/ts3query/internal/config"
	"github.com/ts3query/ts3query/internal/querytest"
	"github.com/ts3query/ts3query/serverquery"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of the
// session reader goroutine and the command goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut syncBuffer
	a := newApp(strings.NewReader(""), &out, &errOut)
	root := newRootCommand(a)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	a.teardown()
	return out.String(), errOut.String(), err
}

func serverArgs(srv *querytest.Server, args ...string) []string {
	return append([]string{
		"--host", srv.Host(),
		"--port", strconv.Itoa(srv.Port()),
		"--log-level", "error",
	}, args...)
}

func TestFullTitle(t *testing.T) {
	assert.Equal(t, "ts3query v"+version, fullTitle())
}

func TestWelcomeBanner(t *testing.T) {
	banner := welcomeBanner("127.0.0.1:10011")
	assert.True(t, strings.HasPrefix(banner, fullTitle()))
	assert.Contains(t, banner, "Connected to 127.0.0.1:10011")
	assert.Contains(t, banner, ".help")
	assert.Contains(t, banner, ".quit")
	assert.True(t, strings.HasSuffix(banner, "\n"))
}

func TestVersionFlag(t *testing.T) {
	out, _, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "version "+version)
}

func TestExecPrintsTable(t *testing.T) {
	srv := querytest.Start(t, func(cmd string) string {
		if cmd == "version" {
			return querytest.Reply("version=3.13.7 build=1655727713 platform=Linux")
		}
		return querytest.OK
	})

	out, errOut, err := runCLI(t, serverArgs(srv, "exec", "version")...)
	require.NoError(t, err)
	assert.Empty(t, errOut)
	for _, want := range []string{"version", "platform", "3.13.7", "Linux", "1655727713"} {
		assert.Contains(t, out, want)
	}
}

func TestExecJSON(t *testing.T) {
	srv := querytest.Start(t, func(cmd string) string {
		if cmd == "clientlist --uid" {
			return querytest.Reply(`clid=1 client_nickname=serveradmin|clid=5 client_nickname=Alice\sB`)
		}
		return querytest.Error(256, "command not found")
	})

	out, _, err := runCLI(t, serverArgs(srv, "--json", "exec", "clientlist", "--uid")...)
	require.NoError(t, err)

	var resp responseJSON
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Alice B", resp.Data[1]["client_nickname"])
	assert.Equal(t, 0, resp.Status.ID)
	assert.Equal(t, "ok", resp.Status.Message)
}

func TestExecSendsEncodedFields(t *testing.T) {
	srv := querytest.Start(t, nil)

	_, _, err := runCLI(t, serverArgs(srv, "exec", "sendtextmessage", "targetmode=3", "target=1", "msg=Hello World")...)
	require.NoError(t, err)
	assert.Equal(t, []string{`sendtextmessage msg=Hello\sWorld target=1 targetmode=3`}, srv.Commands())
}

func TestExecStatusError(t *testing.T) {
	srv := querytest.Start(t, func(string) string {
		return querytest.Error(1024, "invalid serverID")
	})

	_, errOut, err := runCLI(t, serverArgs(srv, "exec", "use", "sid=9")...)
	var statusErr *serverquery.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 1024, statusErr.Code())
	assert.Contains(t, errOut, "error id=1024 msg=invalid serverID")
}

func TestExecInvalidParameter(t *testing.T) {
	srv := querytest.Start(t, nil)

	_, _, err := runCLI(t, serverArgs(srv, "exec", "use", "sid")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid parameter "sid"`)
	assert.Empty(t, srv.Commands())
}

func TestExecConnectFailure(t *testing.T) {
	srv := querytest.Start(t, nil)
	args := serverArgs(srv, "exec", "version")
	srv.Stop()

	_, _, err := runCLI(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to "+srv.Host())
	var transportErr *serverquery.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	srv := querytest.Start(t, func(cmd string) string {
		return querytest.Reply("virtualserver_name=Lobby")
	})

	path := filepath.Join(t.TempDir(), "ts3query.yaml")
	content := "server:\n  host: unreachable.invalid\n  port: " + strconv.Itoa(srv.Port()) + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// The port comes from the file, the host from the flag.
	out, _, err := runCLI(t, "--config", path, "--host", srv.Host(), "exec", "serverinfo")
	require.NoError(t, err)
	assert.Contains(t, out, "Lobby")
}

func TestInvalidFlagValueRejected(t *testing.T) {
	_, _, err := runCLI(t, "--port", "0", "exec", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port 0 out of range")
}

func TestGlobalFlagsApply(t *testing.T) {
	var g globalFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	g.register(fs)
	require.NoError(t, fs.Parse([]string{"--port", "10022", "--log-level", "debug", "--metrics-addr", ":9102"}))

	cfg := config.Default()
	cfg.Server.Host = "from-file"
	g.apply(fs, cfg)

	assert.Equal(t, "from-file", cfg.Server.Host, "unset flags keep file values")
	assert.Equal(t, 10022, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
	assert.Equal(t, config.DefaultCommandTimeout, cfg.Server.CommandTimeout)
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected serverquery.Fields
		wantErr  bool
	}{
		{"Empty", nil, serverquery.Fields{}, false},
		{"Key value", []string{"sid=1"}, serverquery.Fields{"sid": "1"}, false},
		{"Value with equals", []string{"msg=a=b"}, serverquery.Fields{"msg": "a=b"}, false},
		{"Empty value", []string{"msg="}, serverquery.Fields{"msg": ""}, false},
		{"Flag", []string{"--uid"}, serverquery.Fields{"uid": true}, false},
		{"Mixed", []string{"--uid", "cid=2"}, serverquery.Fields{"uid": true, "cid": "2"}, false},
		{"Missing equals", []string{"sid"}, nil, true},
		{"Missing key", []string{"=1"}, nil, true},
		{"Bare dashes", []string{"--"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := parseFields(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fields)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := querytest.Start(t, nil)

	var out, errOut syncBuffer
	a := newApp(strings.NewReader(""), &out, &errOut)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	a.flags.register(fs)
	require.NoError(t, fs.Parse([]string{
		"--host", srv.Host(),
		"--port", strconv.Itoa(srv.Port()),
		"--log-level", "error",
		"--metrics-addr", "127.0.0.1:0",
	}))
	require.NoError(t, a.setup(fs))
	t.Cleanup(a.teardown)

	require.NoError(t, a.runExec(context.Background(), "whoami", nil))

	resp, err := http.Get("http://" + a.metricsAddr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `ts3query_session_commands_total{result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
