package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations("postgres://test", "")
		assert.EqualError(t, err, "migrations path cannot be empty")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations("", "migrations/postgres")
		assert.EqualError(t, err, "database URL cannot be empty")
	})
}

func TestWithMigrationsTable(t *testing.T) {
	assert.Equal(t,
		"postgres://u:p@db:5432/credit?sslmode=disable&x-migrations-table=fixture_migrations",
		withMigrationsTable("postgres://u:p@db:5432/credit?sslmode=disable", fixtureMigrationsTable))
	assert.Equal(t,
		"postgres://db/credit?x-migrations-table=fixture_migrations",
		withMigrationsTable("postgres://db/credit", fixtureMigrationsTable))
}

func TestRunFixtures_InputValidation(t *testing.T) {
	assert.EqualError(t, RunFixtures("", "migrations/dev_fixtures"), "database URL cannot be empty")
	assert.EqualError(t, RunFixtures("postgres://test", ""), "migrations path cannot be empty")
}

func TestMigrationSource(t *testing.T) {
	assert.Equal(t, "file://migrations/postgres", migrationSource("migrations/postgres"))
	assert.Equal(t, "file:///abs/migrations", migrationSource("/abs/migrations"))
	assert.Equal(t, "file://already/prefixed", migrationSource("file://already/prefixed"))
}
