package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/clan-battles/db"
	"github.com/riskibarqy/clan-battles/internal/app"
	"github.com/riskibarqy/clan-battles/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/clan-battles/internal/platform/logging"
)

var errUsage = errors.New("usage")

// command is one migration subcommand. args excludes the command name.
type command struct {
	usage string
	run   func(m *migrate.Migrate, args []string, logger *logging.Logger) error
}

var commands = map[string]command{
	"up": {usage: "up", run: func(m *migrate.Migrate, _ []string, logger *logging.Logger) error {
		return applied(m.Up(), logger, "migrations applied")
	}},
	"down": {usage: "down [steps]", run: func(m *migrate.Migrate, args []string, logger *logging.Logger) error {
		steps, err := parseSteps(args)
		if err != nil {
			return err
		}
		return applied(m.Steps(-steps), logger, "migrations rolled back", "steps", steps)
	}},
	"goto": {usage: "goto <version>", run: gotoVersion},
	// migrate is kept as an alias of goto.
	"migrate": {usage: "migrate <version>", run: gotoVersion},
	"force": {usage: "force <version>", run: func(m *migrate.Migrate, args []string, logger *logging.Logger) error {
		if len(args) == 0 {
			return fmt.Errorf("%w: force requires a version argument", errUsage)
		}
		version, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		logger.Info("version forced", "version", version)
		return nil
	}},
	"version": {usage: "version", run: func(m *migrate.Migrate, _ []string, _ *logging.Logger) error {
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return nil
		case err != nil:
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Printf("version: %d\ndirty: %t\n", version, dirty)
		return nil
	}},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	logger := logging.NewConsole(logging.LevelInfo).Named("migration")
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(os.Args[1:], logger); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			printUsage()
			os.Exit(2)
		}
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, logger *logging.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	name := strings.ToLower(strings.TrimSpace(args[0]))

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}
	dbURL = normalizeDBURL(dbURL)

	if name == "seed" {
		inserted, err := runSeed(dbURL)
		if err != nil {
			return err
		}
		logger.Info("seed applied", "inserted", inserted)
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	m, source, err := newMigrator(dbURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("close migrator failed", "error", err)
		}
	}()

	return cmd.run(m, args[1:], logger.With("source", source))
}

func gotoVersion(m *migrate.Migrate, args []string, logger *logging.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: goto requires a target version argument", errUsage)
	}
	target, err := parseTarget(args[0])
	if err != nil {
		return err
	}
	return applied(m.Migrate(target), logger, "migrated", "version", target)
}

// applied treats ErrNoChange as success.
func applied(err error, logger *logging.Logger, msg string, args ...any) error {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("no migration changes")
		return nil
	case err != nil:
		return err
	}
	logger.Info(msg, args...)
	return nil
}

// newMigrator prefers an on-disk migrations dir and falls back to the copy
// embedded in the binary.
func newMigrator(dbURL string) (*migrate.Migrate, string, error) {
	if dir, ok := resolveMigrationsDir(); ok {
		sourceURL := "file://" + filepath.ToSlash(dir)
		m, err := migrate.New(sourceURL, dbURL)
		return m, sourceURL, err
	}

	sub, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		return nil, "", fmt.Errorf("open embedded migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, "", fmt.Errorf("create embedded migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	return m, "embedded", err
}

func runSeed(dbURL string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		return 0, fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	return postgres.BootstrapSeed(ctx, conn)
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	switch {
	case err != nil:
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	case steps <= 0:
		return 0, fmt.Errorf("down steps must be > 0, got %d", steps)
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	switch {
	case err != nil:
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	case value < 0:
		return 0, fmt.Errorf("version must be >= 0, got %d", value)
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

// resolveMigrationsDir checks MIGRATIONS_DIR, MIGRATIONS_PATH and the repo and
// container layouts, in that order.
func resolveMigrationsDir() (string, bool) {
	for _, candidate := range []string{
		os.Getenv("MIGRATIONS_DIR"),
		os.Getenv("MIGRATIONS_PATH"),
		"./db/migrations",
		"/app/db/migrations",
	} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, true
		}
	}
	return "", false
}

func normalizeDBURL(raw string) string {
	disable, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv("DB_DISABLE_PREPARED_BINARY_RESULT")))
	if !disable {
		disable = strings.EqualFold(strings.TrimSpace(os.Getenv("DB_DISABLE_PREPARED_BINARY_RESULT")), "yes")
	}
	return app.NormalizeDBURL(raw, disable)
}

func printUsage() {
	bin := filepath.Base(os.Args[0])
	names := []string{"up", "down", "goto", "migrate", "force", "version"}
	fmt.Fprintf(os.Stderr, "usage: %s <command> [args]\ncommands:\n", bin)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s %s\n", bin, commands[name].usage)
	}
	fmt.Fprintf(os.Stderr, "  %s seed\n", bin)
}
