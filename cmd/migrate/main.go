package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"go.uber.org/zap"

	"atelier/internal/config"
	"atelier/internal/infrastructure/logger"
	"atelier/internal/infrastructure/migration"
	"atelier/internal/infrastructure/sqldb"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Database.Driver == config.DriverMemory {
		zapLogger.Info("memory driver configured, nothing to migrate")
		return
	}

	db, err := sqldb.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}

	m, err := migration.New(db, cfg.Database.Driver, zapLogger)
	if err != nil {
		db.Close()
		zapLogger.Fatal("creating migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			zapLogger.Error("closing migrator", zap.Error(err))
		}
	}()

	if err := run(m, args); err != nil {
		zapLogger.Error("migration failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(m *migration.Migrator, args []string) error {
	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		return m.Force(v)
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a number", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[1], err)
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: migrate <command> [arg]

commands:
  up          apply every pending migration
  down        roll back every migration
  steps N     apply N migrations (negative rolls back)
  version     print the applied version
  force V     mark version V as applied without running it

The database is taken from the server configuration (config.yaml or
DATABASE_* environment variables).`)
}
