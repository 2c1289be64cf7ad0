package main

import (
	"context"
	"fmt"
	"ms-marketplace/internal/config"
	"ms-marketplace/internal/database"
	"ms-marketplace/internal/database/migrations"
	"ms-marketplace/internal/logger"
	ticket_db "ms-marketplace/internal/tickets/db"

	"github.com/spf13/pflag"
)

// runMigrate implements `marketplace migrate [up|down|version|to] [flags]`.
func runMigrate(args []string, cfg *config.Config, log *logger.Logger) int {
	flags := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	dir := flags.String("dir", cfg.Migrations.Dir, "directory holding the SQL migrations")
	target := flags.Uint("version", 0, "target version for `migrate to`")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	action := "up"
	if flags.NArg() > 0 {
		action = flags.Arg(0)
	}

	ctx := context.Background()
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Error("MIGRATE", err.Error())
		return 1
	}
	defer bunDB.Close()

	if cfg.Database.Driver != "postgres" {
		if action != "up" {
			log.Error("MIGRATE", fmt.Sprintf("%q is only supported on postgres", action))
			return 1
		}
		if err := (&ticket_db.DB{Bun: bunDB}).CreateSchema(ctx); err != nil {
			log.Error("MIGRATE", fmt.Sprintf("Failed to create schema: %v", err))
			return 1
		}
		log.Info("MIGRATE", "✅ Schema created")
		return 0
	}

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: *dir}, log)
	defer runner.Close()

	switch action {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		err = runner.MigrateTo(*target)
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = runner.Version()
		if err == nil {
			log.Info("MIGRATE", fmt.Sprintf("Schema version %d (dirty=%t)", version, dirty))
		}
	default:
		err = fmt.Errorf("unknown migrate action %q", action)
	}
	if err != nil {
		log.Error("MIGRATE", err.Error())
		return 1
	}
	log.Info("MIGRATE", fmt.Sprintf("✅ migrate %s done", action))
	return 0
}
