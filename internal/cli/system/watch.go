package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/observability"
)

// WatchCmd follows the shared target without a terminal UI, printing every
// transition and tick as a line. It runs until interrupted.
type WatchCmd struct {
	MetricsAddr string `help:"Serve Prometheus metrics on this address (overrides config.yaml)." placeholder:"HOST:PORT"`
}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.run(sigCtx, ctx, cli.NewLineDisplay(os.Stdout))
}

func (c *WatchCmd) run(runCtx context.Context, ctx *cli.Context, display *cli.LineDisplay) error {
	sess, notifier, err := ctx.NewSession(display)
	if err != nil {
		return err
	}
	defer notifier.Close()
	defer sess.Close()

	addr := c.MetricsAddr
	if addr == "" {
		addr = ctx.Config.Metrics.Address
	}
	metricsErr := make(chan error, 1)
	if addr != "" {
		go func() { metricsErr <- observability.Serve(runCtx, addr) }()
	}

	if err := sess.Start(runCtx); err != nil {
		return err
	}
	logger.Info("Watching target", "session", sess.ID(), "store", ctx.Store.GetConfigPath())

	select {
	case <-runCtx.Done():
		return nil
	case err := <-metricsErr:
		if err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		return nil
	}
}
