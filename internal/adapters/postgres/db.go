package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	sqliteDriver "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Connect opens and validates a GORM connection pool. Postgres is the
// production driver; sqlite serves local development and tests.
func Connect(ctx context.Context, driver, dsn string, maxConns int32) (*gorm.DB, error) {
	logger := slog.Default().With("module", "postgres", "layer", "adapter")
	logger.InfoContext(ctx, "database connect started",
		"operation", "connect", "outcome", "start", "driver", driver)

	db, err := open(driver, dsn)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(int(maxConns))
		sqlDB.SetMaxIdleConns(int(maxConns) / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.InfoContext(ctx, "database connect completed",
		"operation", "connect", "outcome", "success", "driver", driver)
	return db, nil
}

func open(driver, dsn string) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres":
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("dsn is required for driver postgres")
		}
		return gorm.Open(postgres.Open(dsn), &gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
		})
	case "sqlite":
		if strings.TrimSpace(dsn) == "" {
			dsn = "upsell.db"
		}
		return gorm.Open(sqliteDriver.Open(dsn), &gorm.Config{
			TranslateError: true,
		})
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// RunMigrations applies embedded SQL migrations in lexical order.
// Embedding migrations with the binary avoids drift between code and schema at startup.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	logger := slog.Default().With("module", "postgres", "layer", "adapter")
	for _, name := range names {
		raw, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(raw)) {
			if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
				return fmt.Errorf("exec migration %s: %w", name, err)
			}
		}
		logger.InfoContext(ctx, "migration applied",
			"operation", "apply_migration", "outcome", "success", "migration", name)
	}
	return nil
}

// claimLock appends FOR UPDATE SKIP LOCKED to a claim subquery on dialects
// that support row locks. Sqlite rejects the FOR clause and is single-writer
// anyway; the claim_token and claim_until columns serialize claims there.
func claimLock(q *gorm.DB) *gorm.DB {
	if q.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	return q
}

// splitStatements breaks a migration file on semicolons so sqlite, which
// executes one statement per call, can run the same files as postgres.
func splitStatements(raw string) []string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
