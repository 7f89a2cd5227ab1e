package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bayesnet/internal/config"
	"bayesnet/internal/domain"
	"bayesnet/internal/loader"
	"bayesnet/internal/logging"
)

// app carries the state shared by every command
type app struct {
	// Global flags
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "bayesnet",
		Short: "Exact inference over discrete Bayesian networks",
		Long: `bayesnet answers posterior queries P(X | evidence) over discrete
Bayesian networks loaded from JSON or YAML documents.

Two exact engines are available: enumeration and variable elimination.
Both return the same distribution; elimination scales better on larger
networks.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: search standard locations)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Trace inference steps at debug level")

	root.AddCommand(
		newQueryCmd(a),
		newInteractiveCmd(a),
		newBenchmarkCmd(a),
		newInfoCmd(a),
		newValidateCmd(a),
		newExportCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the configuration and builds the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if a.configPath != "" {
		cfg, path, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	a.logger, err = logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: a.verbose,
	})
	if err != nil {
		return err
	}

	if path != "" {
		a.logger.Debug("config loaded", zap.String("path", path))
	}
	return nil
}

func (a *app) loader() *loader.Loader {
	return loader.New(
		loader.WithRequireCompleteCPTs(a.cfg.Loader.RequireCompleteCPTs),
		loader.WithLogger(a.logger),
	)
}

// loadNetwork reads a network file, or builds a built-in example when
// example is set
func (a *app) loadNetwork(path, example string) (*domain.Network, error) {
	switch {
	case example != "":
		return loader.Example(example)
	case path != "":
		return a.loader().LoadFile(path)
	default:
		return nil, fmt.Errorf("either --network or --example is required (examples: %v)", loader.Examples())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
