// Command cli runs the goose SQL migrations against the write
// database. -status reports the migration state without applying
// anything.
package main

import (
	"flag"
	"os"

	"github.com/techlab/whatsapp-gateway/internal/config"
	"github.com/techlab/whatsapp-gateway/pkg/logger"
	"github.com/techlab/whatsapp-gateway/pkg/pg"
)

func main() {
	envPath := flag.String("env", defaultEnvFile(), "env file to load before reading process env")
	dir := flag.String("dir", "./migrations", "directory holding the goose SQL migrations")
	status := flag.Bool("status", false, "print migration status instead of applying")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	pgConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	if *status {
		if err := pg.MigrationStatus(pgConf, *dir); err != nil {
			logger.Error("migration: error reading status", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := pg.Migrate(pgConf, *dir); err != nil {
		logger.Error("migration: error running migrations", "error", err)
		os.Exit(1)
	}
}

// defaultEnvFile points the -env flag at ./.env when one exists, so
// local runs pick it up without an explicit flag.
func defaultEnvFile() string {
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}
