package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dusk-indust/studyguide/internal/config"
	"github.com/dusk-indust/studyguide/internal/metrics"
)

// CLI flags parsed from command line.
type cliFlags struct {
	ConfigDir   string
	PlanPath    string
	MCPAddr     string
	MetricsAddr string
	Semesters   int
	Force       bool
	Verbose     bool
	ServeMCP    bool
	Version     bool
}

// version is set by goreleaser at build time.
var version = "dev"

const usage = `usage: studyguide [flags] <command> [args]

commands:
  resolve <code>...   fetch courses and their dependency closure
  validate <plan>     check a plan against its constraints
  status <plan>       print the semesters of a plan
  diagram [plan]      print a Mermaid diagram of a plan or of the stored course graph
  export <plan>       print a JSON report of a plan
  query <pattern>     search the stored course graph
  init-plan <plan>    create an empty plan file
  init                register the MCP server in .mcp.json`

// errUsage is returned for a missing or unknown command.
var errUsage = errors.New(usage)

// app carries what every command needs.
type app struct {
	cfg     *config.Config
	flags   cliFlags
	logger  *zap.Logger
	metrics *metrics.Metrics
	out     io.Writer
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	var flags cliFlags

	fs := flag.NewFlagSet("studyguide", flag.ContinueOnError)
	fs.StringVar(&flags.ConfigDir, "config-dir", ".", "directory holding studyguide.yml")
	fs.StringVar(&flags.PlanPath, "plan", "", "plan file served with --serve-mcp")
	fs.StringVar(&flags.MCPAddr, "mcp-addr", "", "serve MCP over streamable HTTP on this address instead of stdio")
	fs.StringVar(&flags.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")
	fs.IntVar(&flags.Semesters, "semesters", 6, "number of semesters created by init-plan")
	fs.BoolVar(&flags.Force, "force", false, "overwrite existing files")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Fprintln(out, version)
		return nil
	}

	cfg, err := config.Load(flags.ConfigDir)
	if err != nil {
		return err
	}
	if flags.MetricsAddr != "" {
		cfg.MetricsAddr = flags.MetricsAddr
	}
	if flags.Verbose {
		cfg.Verbose = true
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	a := &app{
		cfg:     cfg,
		flags:   flags,
		logger:  logger,
		metrics: metrics.New(reg),
		out:     out,
	}
	if cfg.MetricsAddr != "" {
		go a.serveMetrics(ctx, reg)
	}

	if flags.ServeMCP {
		return a.runServeMCP(ctx)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	cmd, cmdArgs := rest[0], rest[1:]

	switch cmd {
	case "resolve":
		return a.runResolve(ctx, cmdArgs)
	case "validate":
		return a.runValidate(oneArg(cmdArgs))
	case "status":
		return a.runStatus(oneArg(cmdArgs))
	case "diagram":
		return a.runDiagram(ctx, cmdArgs)
	case "export":
		return a.runExport(oneArg(cmdArgs))
	case "query":
		return a.runQuery(ctx, oneArg(cmdArgs))
	case "init-plan":
		return a.runInitPlan(oneArg(cmdArgs))
	case "init":
		return a.runInit(flags.ConfigDir)
	}
	return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
}

// oneArg returns the first argument or "" so commands can report what is
// missing.
func oneArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// serveMetrics exposes reg on cfg.MetricsAddr until ctx is cancelled.
func (a *app) serveMetrics(ctx context.Context, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	a.logger.Info("serving metrics", zap.String("addr", a.cfg.MetricsAddr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.logger.Error("metrics server stopped", zap.Error(err))
	}
}
