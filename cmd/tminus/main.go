package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/cli/settings"
	"github.com/julianstephens/tminus/internal/cli/system"
	"github.com/julianstephens/tminus/internal/cli/target"
	"github.com/julianstephens/tminus/internal/config"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/errors"
	"github.com/julianstephens/tminus/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Store path (.db for SQLite, .json for a shared JSON document) or PostgreSQL connection string. For PostgreSQL, credentials must NOT be embedded in the connection string. Use environment variables, .pgpass, or OS keyring instead." type:"string" default:"${default_config}"`
	Debug   bool   `help:"Enable debug logging."`

	Init     system.InitCmd       `cmd:"" help:"Initialize tminus storage."`
	Migrate  system.MigrateCmd    `cmd:"" help:"Run database migrations."`
	Tui      system.TuiCmd        `cmd:"" help:"Launch the interactive countdown." default:"1"`
	Set      target.SetCmd        `cmd:"" help:"Set the shared countdown target."`
	Clear    target.ClearCmd      `cmd:"" help:"Clear the shared countdown target."`
	Show     target.ShowCmd       `cmd:"" help:"Show the current target and time remaining."`
	Watch    system.WatchCmd      `cmd:"" help:"Follow the countdown on stdout until interrupted."`
	Doctor   system.DoctorCmd     `cmd:"" help:"Run health checks and diagnostics."`
	Diag     system.DebugCmd      `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
	Keyring  struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check OS keyring availability." default:"1"`
	} `cmd:"" help:"Manage credentials in the OS keyring."`
	Notify system.NotifyCmd `cmd:"" hidden:"" help:"Send the current target to the notification sinks (used for testing setups)."`
}

// commands that open the store themselves, or never need it
var skipLoad = map[string]bool{
	"init":    true,
	"migrate": true,
	"doctor":  true,
	"keyring": true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Shared countdown timer synced through a common store"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":        constants.Version,
			"default_config": constants.DefaultConfigPath,
		},
	)

	command := strings.Fields(ctx.Command())
	name := "tui"
	if len(command) > 0 {
		name = command[0]
	}

	configDir := cli.ConfigDir(CLI.Config, constants.DefaultConfigPath)
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: configDir,
		Quiet:     name == "tui",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		errors.Fatal(err)
	}

	store, err := cli.OpenStore(CLI.Config, cfg)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	appCtx := &cli.Context{
		Store:  store,
		Config: cfg,
	}

	// Load the store before running the command (init, migrate, doctor and keyring handle their own)
	if !skipLoad[name] {
		if err := store.Load(); err != nil {
			store.Close()
			errors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errors.Fatal(err)
	}
}
