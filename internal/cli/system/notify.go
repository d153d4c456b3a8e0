package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/fanout"
)

// NotifyCmd pushes the current target through the configured sinks without
// writing it, for checking tray, webhook and kafka setup.
type NotifyCmd struct {
	Value  string `arg:"" optional:"" help:"Value to announce. Defaults to the stored target."`
	DryRun bool   `help:"Print notifications to stdout instead of sending them."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	value := c.Value
	if value == "" {
		rctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
		value, _, err = ctx.Store.Read(rctx, constants.FieldSelectedDate)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to read target: %w", err)
		}
	}

	n := fanout.FromConfig(ctx.Config, settings, ctx.Store)
	defer n.Close()

	if n.Len() == 0 {
		fmt.Println("No notification sinks enabled.")
		return nil
	}

	if c.DryRun {
		for _, name := range n.Names() {
			fmt.Printf("[DRY RUN] %s: %s\n", name, fanout.Message(value))
		}
		return nil
	}

	nctx, cancel := context.WithTimeout(context.Background(), 2*constants.NotifyTimeout)
	defer cancel()
	if err := n.Notify(nctx, value); err != nil {
		return fmt.Errorf("notification failed: %w", err)
	}
	fmt.Printf("✓ Notified %d sink(s)\n", n.Len())
	return nil
}
