package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/booking-service/internal/config"
	"github.com/cuongbtq/booking-service/migrations"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	steps := flag.Int("steps", 0, "Apply n migrations (negative rolls back); 0 means all")
	flag.Parse()

	direction := flag.Arg(0)
	switch direction {
	case "up", "down", "version":
	default:
		fmt.Fprintln(os.Stderr, "Usage: migrate [-config path] [-steps n] <up|down|version>")
		return exitFailure
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load migrations: %v\n", err)
		return exitFailure
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, cfg.PostgreSQL().URL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrate instance: %v\n", err)
		return exitFailure
	}
	defer func() { _, _ = m.Close() }()

	if direction == "version" {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("No migrations applied")
			return exitSuccess
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read version: %v\n", err)
			return exitFailure
		}
		fmt.Printf("Version %d (dirty: %t)\n", version, dirty)
		return exitSuccess
	}

	if err := runMigration(m, direction, *steps); err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", direction, err)
		return exitFailure
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return exitSuccess
}

func runMigration(m *migrate.Migrate, direction string, steps int) error {
	var err error

	switch {
	case steps != 0 && direction == "down":
		err = m.Steps(-abs(steps))
	case steps != 0:
		err = m.Steps(abs(steps))
	case direction == "up":
		err = m.Up()
	default:
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to apply")
		return nil
	}

	return err
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
