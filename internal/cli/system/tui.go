package system

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	bridge := tui.NewBridge(0)
	sess, notifier, err := ctx.NewSession(bridge)
	if err != nil {
		return err
	}
	defer notifier.Close()

	loc, err := ctx.Location()
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.NewModel(sess, loc, ctx.Store.GetConfigPath()), tea.WithAltScreen())
	bridge.Attach(p)

	go func() {
		if err := sess.Start(context.Background()); err != nil {
			logger.Error("Session start failed", "error", err)
			p.Send(tea.Quit())
		}
	}()

	_, runErr := p.Run()

	// No display calls reach the bridge once Close returns.
	sess.Close()
	bridge.Close()
	<-bridge.Done()

	wctx, cancel := context.WithTimeout(context.Background(), 2*constants.NotifyTimeout)
	defer cancel()
	if err := sess.WaitNotifications(wctx); err != nil {
		logger.Warn("Pending notifications abandoned", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("tui: %w", runErr)
	}
	return nil
}
