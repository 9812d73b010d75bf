package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"instaguard/internal/models"
	"instaguard/migrations"
)

// sqlitePrefix selects the local SQLite store in a DATABASE_URL.
const sqlitePrefix = "sqlite://"

// Store is the persistence surface the application needs: the append-only
// decision log plus the OIDC user table.
type Store interface {
	RecordDecision(ctx context.Context, d *models.Decision) (uuid.UUID, error)
	ListDecisions(ctx context.Context, f models.DecisionFilter) ([]models.Decision, error)
	CountDecisionsByLabel(ctx context.Context) ([]models.LabelCount, error)

	UpsertUser(ctx context.Context, user *models.User) error
	GetUserBySub(ctx context.Context, sub string) (*models.User, error)

	Ping(ctx context.Context) error
	Close()
}

// Open connects to the store named by url: a sqlite:// path opens the local
// SQLite store, anything else is treated as a PostgreSQL connection string.
// Migrations are applied in both cases.
func Open(ctx context.Context, url string) (Store, error) {
	if path, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		return OpenSQLite(path)
	}

	d, err := New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := d.RunMigrations(url); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}
