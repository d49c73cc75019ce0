package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Cybonto/violentutf-routesync/internal/compiler"
	"github.com/Cybonto/violentutf-routesync/internal/config"
	"github.com/Cybonto/violentutf-routesync/internal/models"
	"github.com/Cybonto/violentutf-routesync/internal/report"
	"github.com/Cybonto/violentutf-routesync/internal/runlock"
	"github.com/Cybonto/violentutf-routesync/internal/services"
	"github.com/Cybonto/violentutf-routesync/internal/version"
	"github.com/Cybonto/violentutf-routesync/pkg/gateway"
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
	"github.com/Cybonto/violentutf-routesync/pkg/topology"
	"github.com/Cybonto/violentutf-routesync/pkg/workpool"
)

// Exit codes: 0 pass/warn, 1 fail, 2 aborted.
const (
	exitFail    = 1
	exitAborted = 2
)

var (
	flagEnvFile  string
	flagLogLevel string
	flagOutput   string
	flagDryRun   bool
)

func main() {
	root := &cobra.Command{
		Use:           "routesync",
		Short:         "Reconciles the gateway's route table against the enabled AI providers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "env file maintained by the platform installer")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log verbosity (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&flagOutput, "output", "text", "report format (text|json)")

	exitWith := func(verifyOnly bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			code, err := run(cmd.Context(), verifyOnly)
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		}
	}

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the full pipeline: readiness, compile, reconcile, verify",
		RunE:  exitWith(false),
	}
	syncCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "stop after the diff; write and probe nothing")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Probe the expected routes without writing anything",
		RunE:  exitWith(true),
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version",
		Run: func(*cobra.Command, []string) {
			fmt.Println(version.String())
		},
	}

	root.AddCommand(syncCmd, verifyCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitAborted)
	}
}

func run(ctx context.Context, verifyOnly bool) (int, error) {
	cfg, v, err := config.Load(flagEnvFile)
	if err != nil {
		return 0, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return 0, err
	}
	defer logger.Sync() //nolint:errcheck

	zap.S().Debugw("configuration loaded", "config", cfg.DebugMap())

	engine, cleanup, err := buildEngine(ctx, cfg, v)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	lease, err := runlock.Acquire(cfg.LeaseFile)
	if err != nil {
		return 0, err
	}
	defer lease.Release() //nolint:errcheck

	var rep *models.Report
	if verifyOnly {
		rep, err = engine.VerifyOnly(ctx)
	} else {
		rep, err = engine.Run(ctx, flagDryRun)
	}

	render(rep)
	if err != nil {
		zap.S().Errorw("run aborted", "error", err)
		return exitAborted, nil
	}
	switch rep.Verdict {
	case models.VerdictFail:
		return exitFail, nil
	case models.VerdictWarn:
		zap.S().Warnw("run passed with warnings", "coverage", rep.Reconciliation.Coverage)
	}
	return 0, nil
}

func buildEngine(ctx context.Context, cfg *config.Configuration, v *viper.Viper) (*services.Engine, func(), error) {
	adminPolicy := retry.Policy{MaxAttempts: cfg.Retry.AdminAttempts, Interval: cfg.Retry.AdminInterval}
	client := gateway.NewAdminClient(cfg.Gateway.AdminURL, cfg.Gateway.AdminKey, adminPolicy)
	prober := gateway.NewProber(cfg.Gateway.DataPlaneURL, cfg.Retry.ProbeTimeout)

	var (
		resolver  compiler.AddressResolver
		restarter services.GatewayRestarter
	)
	if cfg.Gateway.PodmanSocket != "" {
		runtime, err := topology.NewPodmanRuntime(ctx, cfg.Gateway.PodmanSocket)
		if err != nil {
			return nil, nil, err
		}
		resolver = topology.NewResolver(runtime, cfg.Gateway.Network)
		restarter = runtime
	} else {
		zap.S().Infow("no podman socket configured, topology resolution and recovery restart disabled")
	}

	gate := services.NewReadinessGate(client, restarter, cfg.Gateway.ContainerName, cfg.Gateway.RequiredPlugin,
		retry.Policy{MaxAttempts: cfg.Retry.ConnectAttempts, Interval: cfg.Retry.ConnectInterval},
		retry.Policy{MaxAttempts: cfg.Retry.CapabilityAttempts, Interval: cfg.Retry.CapabilityInterval},
	)

	comp := compiler.New(resolver, cfg.Gateway.Origins(), cfg.Gateway.APIServiceURL)
	session := services.NewSession(client)

	pool := workpool.New(cfg.Retry.VerifyWorkers)
	verifier := services.NewVerifier(prober, pool)

	providers := config.LoadProviders(v)
	engine := services.NewEngine(cfg, providers, gate, comp, session, verifier)
	return engine, pool.Close, nil
}

func render(rep *models.Report) {
	if rep == nil {
		return
	}
	if flagOutput == "json" {
		if err := report.RenderJSON(os.Stdout, rep); err != nil {
			zap.S().Errorw("failed to render report", "error", err)
		}
		return
	}
	report.Render(os.Stdout, rep)
}

func setupLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logCfg := zap.NewProductionConfig()
	logCfg.Encoding = "console"
	logCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logCfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := logCfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
