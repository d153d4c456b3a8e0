package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/tminus/internal/cli"
	"github.com/julianstephens/tminus/internal/constants"
	"github.com/julianstephens/tminus/internal/fanout"
	"github.com/julianstephens/tminus/internal/keyring"
	"github.com/julianstephens/tminus/internal/models"
	"github.com/julianstephens/tminus/internal/storage/postgres"
	"github.com/julianstephens/tminus/internal/utils"
)

type DoctorCmd struct{}

// schemaReporter is implemented by stores with versioned schemas.
type schemaReporter interface {
	SchemaVersions(ctx context.Context) (current, latest int, err error)
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	storeReachable := false

	// Check 1: store reachable
	if err := checkStoreReachable(ctx); err != nil {
		fmt.Printf("❌ Store reachable: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Store reachable: OK\n")
		storeReachable = true
	}

	// Check 2: schema version (only if the store is reachable)
	if storeReachable {
		if err := checkSchemaVersion(ctx); err != nil {
			fmt.Printf("❌ Schema version: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else {
			fmt.Printf("✓ Schema version: OK\n")
		}
	} else {
		fmt.Printf("⊘ Schema version: SKIPPED (store not reachable)\n")
	}

	// Check 3: settings and timezone
	var settings models.Settings
	if storeReachable {
		var err error
		settings, err = checkSettings(ctx)
		if err != nil {
			fmt.Printf("❌ Settings: FAIL\n")
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		} else {
			fmt.Printf("✓ Settings: OK (timezone %s)\n", settings.Timezone)
		}
	} else {
		fmt.Printf("⊘ Settings: SKIPPED (store not reachable)\n")
	}

	// Check 4: stored target
	if storeReachable {
		if msg, err := checkTarget(ctx, settings); err != nil {
			fmt.Printf("⚠ Stored target: WARNING\n")
			fmt.Printf("   %v\n", err)
		} else {
			fmt.Printf("✓ Stored target: %s\n", msg)
		}
	} else {
		fmt.Printf("⊘ Stored target: SKIPPED (store not reachable)\n")
	}

	// Check 5: clock sanity
	if err := checkClockTimezone(settings.Timezone); err != nil {
		fmt.Printf("❌ Clock/timezone: FAIL\n")
		fmt.Printf("   Error: %v\n", err)
		hasError = true
	} else {
		fmt.Printf("✓ Clock/timezone: OK\n")
	}

	// Check 6: notification sinks (warning only)
	if err := checkNotifiers(ctx, settings); err != nil {
		fmt.Printf("⚠ Notifications: WARNING\n")
		fmt.Printf("   %v\n", err)
	} else {
		fmt.Printf("✓ Notifications: OK\n")
	}

	// Check 7: keyring, only relevant for PostgreSQL
	if _, ok := ctx.Store.(*postgres.Store); ok {
		if keyring.IsAvailable() {
			fmt.Printf("✓ OS keyring: OK\n")
		} else {
			fmt.Printf("⚠ OS keyring: WARNING\n")
			fmt.Printf("   keyring unavailable, use %s or .pgpass\n", constants.ConnectionEnvVar)
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

func checkStoreReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	rctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()
	if _, _, err := ctx.Store.Read(rctx, constants.FieldSelectedDate); err != nil {
		return fmt.Errorf("failed to read %s: %w", constants.FieldSelectedDate, err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	reporter, ok := ctx.Store.(schemaReporter)
	if !ok {
		// JSON and memory stores are unversioned
		return nil
	}

	rctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()
	current, latest, err := reporter.SchemaVersions(rctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
	}
	return nil
}

func checkSettings(ctx *cli.Context) (models.Settings, error) {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	if !utils.ValidateTimezone(settings.Timezone) {
		return settings, fmt.Errorf("invalid timezone %q", settings.Timezone)
	}
	return settings, nil
}

func checkTarget(ctx *cli.Context, settings models.Settings) (string, error) {
	rctx, cancel := context.WithTimeout(context.Background(), constants.DefaultStoreQueryTimeout)
	defer cancel()
	raw, ok, err := ctx.Store.Read(rctx, constants.FieldSelectedDate)
	if err != nil {
		return "", err
	}
	if !ok {
		return constants.TextNoTimer, nil
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		return "", err
	}
	if _, err := models.ParseTargetTime(raw, loc); err != nil {
		return "", fmt.Errorf("stored value %q does not match %s", raw, constants.TargetFormat)
	}
	return raw, nil
}

func checkClockTimezone(timezone string) error {
	now, err := utils.NowInTimezone(timezone)
	if err != nil {
		return err
	}
	// Check if time is in a reasonable range (after 2020 and before 2100)
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkNotifiers(ctx *cli.Context, settings models.Settings) error {
	if err := ctx.Config.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !settings.NotificationsEnabled || !ctx.Config.Tray.Enabled {
		return nil
	}

	dir, err := fanout.TrayConfigDir()
	if err != nil {
		return fmt.Errorf("tray config dir: %w", err)
	}
	if _, err := os.Stat(filepath.Join(dir, constants.NotifierLockfileName)); err != nil {
		return fmt.Errorf("tray app not running (no lockfile in %s)", dir)
	}
	return nil
}
