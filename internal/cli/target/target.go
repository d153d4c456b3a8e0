// Package target holds the one-shot commands that read and write the shared
// countdown target.
package target

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/logger"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/session"
)

type SetCmd struct {
	Date string `arg:"" help:"Target date (YYYY-MM-DD)."`
	Time string `arg:"" help:"Target time (HH:MM, 24h)."`
}

func (c *SetCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location()
	if err != nil {
		return err
	}
	target, err := models.CombineDateAndTime(c.Date, c.Time, loc)
	if err != nil {
		return fmt.Errorf("invalid target %s %s, expected %s: %w", c.Date, c.Time, constants.TargetFormat, err)
	}

	return withSession(ctx, func(wctx context.Context, sess *session.Session) error {
		if err := sess.Submit(wctx, target); err != nil {
			return err
		}
		fmt.Printf("✓ Target set to %s\n", target.String())
		if models.ComputeRemaining(target.Time(), time.Now()).Completed {
			fmt.Println("⚠️  Warning: target is in the past, every client will show the countdown as complete.")
		}
		return nil
	})
}

type ClearCmd struct{}

func (c *ClearCmd) Run(ctx *cli.Context) error {
	return withSession(ctx, func(wctx context.Context, sess *session.Session) error {
		if err := sess.Clear(wctx); err != nil {
			return err
		}
		fmt.Println("✓ Target cleared")
		return nil
	})
}

type ShowCmd struct{}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	loc, err := ctx.Location()
	if err != nil {
		return err
	}

	rctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()
	raw, ok, err := ctx.Store.Read(rctx, constants.FieldSelectedDate)
	if err != nil {
		return fmt.Errorf("failed to read target: %w", err)
	}

	display := &cli.CaptureDisplay{}
	sess, notifier, err := ctx.NewSession(display, session.WithLocation(loc))
	if err != nil {
		return err
	}
	defer notifier.Close()
	defer sess.Close()

	sess.OnExternalTargetChange(raw, ok)
	writeSummary(os.Stdout, sess, display, raw, loc)
	return nil
}

func writeSummary(w io.Writer, sess *session.Session, display *cli.CaptureDisplay, raw string, loc *time.Location) {
	if target, ok := sess.Target(); ok {
		fmt.Fprintf(w, "Target:    %s (%s)\n", target.String(), loc)
	} else if raw != "" {
		fmt.Fprintf(w, "Target:    %q\n", raw)
	}
	fmt.Fprintf(w, "Status:    %s\n", display.State())
	fmt.Fprintf(w, "Remaining: %s\n", display.Text())
	if remaining, ok := sess.Remaining(); ok {
		fmt.Fprintf(w, "Seconds:   %d\n", remaining.TotalSeconds())
	}
}

// withSession runs fn against a session bound to the store, then waits for
// the write's notifications so the process does not exit under them.
func withSession(ctx *cli.Context, fn func(context.Context, *session.Session) error) error {
	display := &cli.CaptureDisplay{}
	sess, notifier, err := ctx.NewSession(display)
	if err != nil {
		return err
	}
	defer notifier.Close()
	defer sess.Close()

	wctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()
	if err := fn(wctx, sess); err != nil {
		return err
	}

	nctx, ncancel := context.WithTimeout(context.Background(), 2*constants.NotifyTimeout)
	defer ncancel()
	if err := sess.WaitNotifications(nctx); err != nil {
		logger.Warn("Notifications still pending at exit", "error", err)
	}
	return nil
}
