package system

import (
	"fmt"
	"os"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/storage/postgres"
)

type InitCmd struct {
	Force bool `help:"Force reset by deleting the existing store before initialization."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		path := ctx.Store.GetConfigPath()
		if _, ok := ctx.Store.(*postgres.Store); ok {
			return fmt.Errorf("--force is not supported for PostgreSQL; drop the %q schema manually", constants.AppName)
		}
		if _, err := os.Stat(path); err == nil {
			// Close first so no handle or watcher keeps the file busy
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing store: %w", err)
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to delete existing store: %w", err)
			}
			for _, suffix := range []string{"-wal", "-shm"} {
				if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete %s: %w", path+suffix, err)
				}
			}
			fmt.Printf("Deleted existing store at: %s\n", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing store: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized tminus storage at: %s\n", ctx.Store.GetConfigPath())
	return nil
}
