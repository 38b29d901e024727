package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/hackgods/vitacare-orchestrator/internal/db"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	logger := logging.Default()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Error("POSTGRES_DSN is required")
		os.Exit(1)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := db.Migrate(dsn); err != nil {
			logger.Error("migrate up failed", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	case "force":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: migrate force <version>")
			os.Exit(2)
		}
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid version %q\n", os.Args[2])
			os.Exit(2)
		}
		if err := db.Force(dsn, version); err != nil {
			logger.Error("migrate force failed", "error", err, "version", version)
			os.Exit(1)
		}
		logger.Info("schema version forced", "version", version)
	default:
		fmt.Fprintln(os.Stderr, "usage: migrate [up|force <version>]")
		os.Exit(2)
	}
}
