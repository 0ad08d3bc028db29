// =============================================================================
// main.go - ts3query CLI Entry Point
// =============================================================================
//
// ts3query is a terminal client for the TeamSpeak 3 ServerQuery interface.
// It connects over TCP, waits for the server banner and then either runs an
// interactive REPL, executes a single command or streams event
// notifications.
//
// Usage:
//
//	ts3query                              Interactive REPL on localhost:10011
//	ts3query --host ts.example.org        REPL against another server
//	ts3query exec clientlist --uid        Run one command and print the result
//	ts3query watch --register textserver  Print events until interrupted
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ts3query/ts3query/internal/config"
	"github.com/ts3query/ts3query/internal/logging"
	"github.com/ts3query/ts3query/serverquery"
)

const (
	version   = "0.3.0"
	appName   = "ts3query"
	copyright = "Copyright (c) 2026"
)

// fullTitle returns the application name with version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

// welcomeBanner returns the banner displayed when the REPL starts.
func welcomeBanner(remote string) string {
	return fmt.Sprintf(`%s - TeamSpeak 3 ServerQuery client
%s

Connected to %s
Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), copyright, remote)
}

// =============================================================================
// Command-Line Flags
// =============================================================================

// globalFlags holds the persistent flags. Zero values mean "use the config
// file"; flags only override the file when set explicitly.
type globalFlags struct {
	configPath  string
	host        string
	port        int
	timeout     time.Duration
	logLevel    string
	logFile     string
	metricsAddr string
	json        bool
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&g.configPath, "config", "c", "", "path to a YAML config file")
	fs.StringVarP(&g.host, "host", "H", config.DefaultHost, "ServerQuery host")
	fs.IntVarP(&g.port, "port", "p", config.DefaultPort, "ServerQuery port")
	fs.DurationVarP(&g.timeout, "timeout", "t", config.DefaultCommandTimeout, "time to wait for a command response")
	fs.StringVar(&g.logLevel, "log-level", config.DefaultLogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&g.logFile, "log-file", "", "write JSON logs to this rotated file instead of stderr")
	fs.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&g.json, "json", false, "print responses and events as JSON")
}

// apply copies every explicitly set flag into cfg.
func (g *globalFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("host") {
		cfg.Server.Host = g.host
	}
	if fs.Changed("port") {
		cfg.Server.Port = g.port
	}
	if fs.Changed("timeout") {
		cfg.Server.CommandTimeout = g.timeout
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = g.logLevel
	}
	if fs.Changed("log-file") {
		cfg.Log.File = g.logFile
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = g.metricsAddr
	}
}

// =============================================================================
// Application State
// =============================================================================

// app is what the commands share once the root pre-run has loaded the
// configuration.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags  globalFlags
	cfg    *config.Config
	logger *zap.Logger

	registry      *prometheus.Registry
	metrics       *serverquery.Metrics
	metricsServer *http.Server
	metricsAddr   net.Addr
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, logger: zap.NewNop()}
}

// setup loads the config, applies flags and starts logging and metrics.
func (a *app) setup(fs *pflag.FlagSet) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}
	a.flags.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = serverquery.NewMetrics(a.registry)

	if cfg.Metrics.Addr != "" {
		if err := a.serveMetrics(cfg.Metrics.Addr); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.metricsAddr = ln.Addr()

	go func() {
		if err := a.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	a.logger.Info("Serving metrics", zap.Stringer("addr", a.metricsAddr))
	return nil
}

func (a *app) teardown() {
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		a.metricsServer.Shutdown(ctx)
		cancel()
		a.metricsServer = nil
	}
	a.logger.Sync()
}

// connect opens a session using the loaded config. The dial and the
// banner exchange share the dial timeout.
func (a *app) connect(ctx context.Context) (*serverquery.Session, error) {
	session := serverquery.NewSession(
		serverquery.WithLogger(a.logger),
		serverquery.WithMetrics(a.metrics),
		serverquery.WithBannerLines(a.cfg.Server.BannerLines),
	)

	if a.cfg.Server.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Server.DialTimeout)
		defer cancel()
	}

	err := session.Connect(ctx, a.cfg.Server.Port, a.cfg.Server.Host,
		serverquery.WithDialTimeout(a.cfg.Server.DialTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect to %s:%d: %w", a.cfg.Server.Host, a.cfg.Server.Port, err)
	}
	return session, nil
}

// commandContext bounds a single command wait by the configured timeout.
func (a *app) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Server.CommandTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Server.CommandTimeout)
}

func (a *app) printer() *printer {
	return newPrinter(a.stdout, a.stderr, a.flags.json)
}

// =============================================================================
// Command Tree
// =============================================================================

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "TeamSpeak 3 ServerQuery client",
		Long: `ts3query talks to the ServerQuery interface of a TeamSpeak 3 server.

Without a subcommand it starts an interactive REPL. Lines are sent to the
server verbatim; lines starting with a dot are handled locally.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd.Context())
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	a.flags.register(root.PersistentFlags())

	root.AddCommand(
		newREPLCommand(a),
		newExecCommand(a),
		newWatchCommand(a),
	)
	return root
}

func newREPLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd.Context())
		},
	}
}

// printError prints an error message to stderr.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
}

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	root := newRootCommand(a)

	if err := root.ExecuteContext(context.Background()); err != nil {
		// The status line has already been printed with the response.
		var statusErr *serverquery.StatusError
		if !errors.As(err, &statusErr) {
			printError(os.Stderr, err)
		}
		a.teardown()
		os.Exit(1)
	}
}
