package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/tupae-api/configs"
	applog "github.com/maheshrc27/tupae-api/internal/log"
	"github.com/maheshrc27/tupae-api/migrations"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

func main() {
	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: migrate COMMAND\n\nCommands:\n  up\n  down\n  status")
		os.Exit(2)
	}

	envErr := godotenv.Load()
	cfg := config.LoadConfig()

	logger, flush, err := applog.Install(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()
	if envErr != nil {
		logger.Info("no .env file found, reading configuration from the environment")
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		logger.Fatal("failed to set dialect", zap.Error(err))
	}

	command := args[0]
	switch command {
	case "up":
		if err := goose.Up(db, "."); err != nil {
			logger.Fatal("migration up failed", zap.Error(err))
		}
	case "down":
		if err := goose.Down(db, "."); err != nil {
			logger.Fatal("migration down failed", zap.Error(err))
		}
	case "status":
		if err := goose.Status(db, "."); err != nil {
			logger.Fatal("migration status failed", zap.Error(err))
		}
	default:
		logger.Fatal("unknown command", zap.String("command", command))
	}
}
