// Command migrate manages the PostgreSQL schema of the agro-credit engine.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/agrocredit/backend/internal/infrastructure/config"
	"github.com/agrocredit/backend/internal/infrastructure/logger"
	"github.com/agrocredit/backend/internal/infrastructure/migration"
	"github.com/agrocredit/backend/migrations"
)

const usage = `Agro-credit database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show the applied version
  force <version>       Record a version as applied, clearing the dirty flag
  create <name> [desc]  Write the next migration file pair
  list                  List available migrations

Flags:
  -path string          Migrations directory (default: the embedded set)
  -log-level string     debug, info, warn or error (default: info)

The database is read from the AGRO_DATABASE_* variables or config.yaml.`

// schemaCommand runs against a live database; arg is the optional first
// argument after the command name
type schemaCommand func(m *migration.Migrator, arg string, log *zap.Logger) error

var schemaCommands = map[string]schemaCommand{
	"up":   func(m *migration.Migrator, _ string, _ *zap.Logger) error { return m.Up() },
	"down": func(m *migration.Migrator, _ string, _ *zap.Logger) error { return m.Down() },
	"step": func(m *migration.Migrator, arg string, _ *zap.Logger) error {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid step count %q", arg)
		}
		return m.Steps(n)
	},
	"goto": func(m *migration.Migrator, arg string, _ *zap.Logger) error {
		v, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", arg)
		}
		return m.GoTo(uint(v))
	},
	"force": func(m *migration.Migrator, arg string, _ *zap.Logger) error {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid version %q", arg)
		}
		return m.Force(v)
	},
	"version": func(m *migration.Migrator, _ string, log *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	},
}

var needsArg = map[string]bool{"step": true, "goto": true, "force": true}

func main() {
	dir := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, rest := args[0], args[1:]

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync(log)

	switch command {
	case "create":
		if len(rest) == 0 {
			log.Fatal("Usage: migrate create <name> [description]")
		}
		create(*dir, rest, log)
		return
	case "list":
		list(*dir, log)
		return
	}

	run, ok := schemaCommands[command]
	if !ok {
		log.Error("Unknown command", zap.String("command", command))
		flag.Usage()
		os.Exit(2)
	}
	var arg string
	if needsArg[command] {
		if len(rest) == 0 {
			log.Fatal("Missing argument", zap.String("command", command))
		}
		arg = rest[0]
	}

	m, closeDB := open(*dir, log)
	defer closeDB()
	if err := run(m, arg, log); err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

func open(dir string, log *zap.Logger) (*migration.Migrator, func()) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		log.Fatal("SQL migrations target PostgreSQL; sqlite databases are migrated on startup")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to reach database", zap.Error(err))
	}

	var m *migration.Migrator
	if dir != "" {
		m, err = migration.NewFromPath(db, dir, log)
	} else {
		m, err = migration.New(db, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	return m, func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
		_ = db.Close()
	}
}

func create(dir string, rest []string, log *zap.Logger) {
	if dir == "" {
		dir = "migrations"
	}
	var description string
	if len(rest) > 1 {
		description = rest[1]
	}
	mf, err := migration.CreateMigration(dir, rest[0], description)
	if err != nil {
		log.Fatal("Failed to create migration", zap.Error(err))
	}
	log.Info("Migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
}

func list(dir string, log *zap.Logger) {
	var source fs.FS = migrations.FS
	if dir != "" {
		source = os.DirFS(dir)
	}
	entries, err := migration.ListMigrations(source)
	if err != nil {
		log.Fatal("Failed to list migrations", zap.Error(err))
	}
	for _, e := range entries {
		fmt.Printf("  %06d %s\n", e.Version, e.Name)
	}
}
