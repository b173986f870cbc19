package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"ms-venues/internal/config"
	"ms-venues/internal/database"
	"ms-venues/internal/database/migrations"
	"ms-venues/internal/logger"
)

const usage = `usage: migrate [-seed] <command>

commands:
  up        apply schema migrations (all migrations with -seed)
  seed      apply every migration including demo data
  down      roll back every migration
  to N      migrate up or down to version N
  version   print the current version
`

func main() {
	seed := flag.Bool("seed", false, "include demo data migrations")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg := config.Load()
	cfg.Database.AutoMigrate = false

	log, err := logger.NewLogger(logger.Options{Service: "migrate"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx := context.Background()
	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer store.Close()

	command := flag.Arg(0)
	if cfg.Database.Driver == database.DriverSQLite {
		if command != "up" && command != "seed" {
			log.Fatal("MIGRATE", fmt.Sprintf("%q is not supported for sqlite; only up creates the schema", command))
		}
		if err := database.Migrate(ctx, store.Pool(), false, log); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", "✅ Done.")
		return
	}

	runner := migrations.NewRunner(store.Pool().DB, migrations.MigrateOptions{SeedData: *seed || command == "seed"}, log)
	defer runner.Close()

	switch command {
	case "up", "seed":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		var version uint64
		version, err = strconv.ParseUint(flag.Arg(1), 10, 32)
		if err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("invalid version %q", flag.Arg(1)))
		}
		err = runner.MigrateTo(uint(version))
	case "version":
		var (
			version uint
			dirty   bool
		)
		version, dirty, err = runner.Version()
		if err == nil {
			log.Info("MIGRATE", fmt.Sprintf("Current schema version: %d (dirty: %t)", version, dirty))
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	log.Info("MIGRATE", "✅ Done.")
}
