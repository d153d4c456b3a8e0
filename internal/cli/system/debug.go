package system

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/models"
)

type DebugCmd struct {
	DBPath       *DebugDBPathCmd       `cmd:"" help:"Show store path."`
	DumpFields   *DebugDumpFieldsCmd   `cmd:"" help:"Dump the shared fields as JSON."`
	DumpSettings *DebugDumpSettingsCmd `cmd:"" help:"Dump settings data as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	return printJSON(map[string]string{
		"path": ctx.Store.GetConfigPath(),
	})
}

type DebugDumpFieldsCmd struct{}

type fieldDump struct {
	Value   string `json:"value"`
	Present bool   `json:"present"`
}

func (cmd *DebugDumpFieldsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	rctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()

	out := make(map[string]fieldDump)
	for _, field := range []string{constants.FieldSelectedDate, constants.FieldNotifyUpdate} {
		value, ok, err := ctx.Store.Read(rctx, field)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", field, err)
		}
		out[field] = fieldDump{Value: value, Present: ok}
	}
	return printJSON(out)
}

type DebugDumpSettingsCmd struct{}

func (cmd *DebugDumpSettingsCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return printJSON(models.SettingsToMap(settings))
}

func printJSON(v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(jsonBytes))
	return nil
}
