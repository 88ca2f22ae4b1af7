package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/weave/internal/config"
	"github.com/aretw0/weave/internal/engine"
	"github.com/aretw0/weave/internal/metrics"
	"github.com/aretw0/weave/internal/presentation/tui"
	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/provider"
	"github.com/aretw0/weave/pkg/runner"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	WorkflowPath string
	ConfigPath   string
	Vars         []string // key=value
	RunID        string
	Channel      string // overrides channel.kind
	Checkpoint   string // overrides checkpoint.kind
	Fresh        bool
	Keep         bool // keep the checkpoint after EXIT
	Debug        bool
	Quiet        bool
	Version      string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func (o *RunOptions) defaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Execute loads the configuration and runs one workflow to completion or
// interruption. An interrupted run returns nil after it was checkpointed.
func Execute(ctx context.Context, opts RunOptions) error {
	opts.defaults()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Channel != "" {
		cfg.Channel.Kind = opts.Channel
	}
	if opts.Checkpoint != "" {
		cfg.Checkpoint.Kind = opts.Checkpoint
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := createLogger(cfg, opts.Debug, opts.Stderr)
	if err != nil {
		return err
	}
	return execute(ctx, cfg, opts, logger)
}

func execute(ctx context.Context, cfg *config.Config, opts RunOptions, logger *slog.Logger) error {
	vars, err := parseVars(opts.Vars)
	if err != nil {
		return err
	}

	runID := opts.RunID
	if runID == "" {
		runID = cfg.Channel.Session
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	var cleanup closers
	defer func() {
		if err := cleanup.Close(); err != nil {
			logger.Warn("cleanup failed", "err", err)
		}
	}()

	hooks := domain.LifecycleHooks{}
	if opts.Debug {
		hooks = createDebugHooks(logger)
	}
	var providerMW []provider.Middleware
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.New(reg)
		if err != nil {
			return err
		}
		hooks = hooks.Merge(collector.Hooks())
		providerMW = append(providerMW, collector.Provider())
		cleanup.add(serveMetrics(cfg.Metrics.Addr, reg, logger))
	}

	prov, err := NewProvider(cfg.Provider, providerMW...)
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	ch, closeChannel, err := NewChannel(cfg.Channel, runID, opts.Stdin, opts.Stdout)
	if err != nil {
		return err
	}
	cleanup.add(closeChannel)

	store, closeStore, err := NewStore(cfg.Checkpoint)
	if err != nil {
		return err
	}
	cleanup.add(closeStore)

	interactive := cfg.Channel.Kind == config.ChannelStdio && isTerminal(opts.Stdout)
	quiet := opts.Quiet || !interactive

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithChannel(ch),
		engine.WithPoll(NewPoll(cfg.Channel)),
		engine.WithVariables(vars),
		engine.WithLifecycleHooks(hooks),
		engine.WithRunID(runID),
		engine.WithLimits(engine.Limits{
			MaxSteps:          cfg.Limits.MaxSteps,
			MaxIterations:     cfg.Limits.MaxIterations,
			MaxRecursionDepth: cfg.Limits.MaxRecursionDepth,
			MaxRetryDelay:     cfg.Limits.MaxRetryDelay,
		}),
	}
	if prov != nil {
		engineOpts = append(engineOpts, engine.WithProvider(prov))
	}
	if interactive {
		render, err := tui.NewRenderer(0)
		if err != nil {
			logger.Warn("markdown renderer unavailable", "err", err)
		} else {
			engineOpts = append(engineOpts, engine.WithRenderer(render))
		}
	}

	ctrl := engine.New(engineOpts...)
	if err := ctrl.LoadFile(opts.WorkflowPath); err != nil {
		return err
	}

	if !quiet {
		tui.PrintBanner(opts.Stdout, opts.Version)
	}

	r := runner.NewRunner(
		runner.WithStore(store),
		runner.WithLogger(logger),
		runner.WithDeleteOnFinish(!opts.Keep),
	)

	if opts.Fresh && store != nil {
		if err := store.Delete(ctx, runID); err != nil && !errors.Is(err, domain.ErrCheckpointNotFound) {
			return fmt.Errorf("failed to reset run %s: %w", runID, err)
		}
	}

	resumed, err := r.Resume(ctx, ctrl)
	if err != nil {
		return err
	}
	logRunStatus(logger, opts.Stdout, runID, ctrl.CurrentStepID(), resumed, quiet)

	runErr := r.Run(ctx, ctrl)
	logCompletion(opts.Stdout, runID, ctrl.CurrentStepID(), runErr, store != nil, quiet)
	return handleExecutionError(runErr)
}

// serveMetrics exposes reg on addr until the returned function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() error {
	srv := &http.Server{Addr: addr, Handler: metrics.Router(reg), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
