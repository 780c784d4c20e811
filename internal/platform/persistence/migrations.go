package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationSource turns a directory into a golang-migrate source URL
func migrationSource(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return "file://" + path
}

// fixtureMigrationsTable keeps fixture versions apart from the schema's own
const fixtureMigrationsTable = "fixture_migrations"

// withMigrationsTable points golang-migrate at a separate version table
func withMigrationsTable(databaseURL, table string) string {
	sep := "?"
	if strings.Contains(databaseURL, "?") {
		sep = "&"
	}
	return databaseURL + sep + "x-migrations-table=" + table
}

// RunFixtures applies development fixtures with their own version history
func RunFixtures(databaseURL string, fixturesPath string) error {
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}
	return RunMigrations(withMigrationsTable(databaseURL, fixtureMigrationsTable), fixturesPath)
}

// RunMigrations applies every pending up migration found at migrationsPath
func RunMigrations(databaseURL string, migrationsPath string) error {
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(migrationSource(migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	return nil
}
