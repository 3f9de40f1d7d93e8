package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"testing"

	"fleetdocs/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportsDB() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:               "pg.fleet.local",
		Port:               "5432",
		User:               "fleetdocs",
		Password:           "s3cr3t/+",
		Name:               "commit_reports",
		SSLMode:            "require",
		MaxOpenConns:       8,
		MaxIdleConns:       2,
		ConnMaxLifetimeSec: 300,
	}
}

// stubOpen makes NewPostgres use db instead of a real driver.
func stubOpen(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(string, string) (*sql.DB, error) { return db, err }
	t.Cleanup(func() { sqlOpen = orig })
}

func TestBuildPostgresDSN(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		dsn, err := BuildPostgresDSN(reportsDB())
		require.NoError(t, err)

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "postgres", u.Scheme)
		assert.Equal(t, "pg.fleet.local:5432", u.Host)
		assert.Equal(t, "/commit_reports", u.Path)
		assert.Equal(t, "fleetdocs", u.User.Username())
		pass, ok := u.User.Password()
		assert.True(t, ok)
		assert.Equal(t, "s3cr3t/+", pass)
		assert.Equal(t, "require", u.Query().Get("sslmode"))
		assert.Equal(t, ApplicationName, u.Query().Get("application_name"))
	})

	t.Run("no password and no sslmode", func(t *testing.T) {
		c := reportsDB()
		c.Password = ""
		c.SSLMode = ""
		dsn, err := BuildPostgresDSN(c)
		require.NoError(t, err)
		assert.Equal(t, "postgres://fleetdocs@pg.fleet.local:5432/commit_reports?application_name=fleetdocs", dsn)
	})

	t.Run("missing settings are named", func(t *testing.T) {
		_, err := BuildPostgresDSN(config.DatabaseConfig{Host: "pg", Port: " "})
		require.Error(t, err)
		assert.ErrorContains(t, err, "DB_PORT, DB_USER, DB_NAME")
		assert.NotContains(t, err.Error(), "DB_HOST")
	})
}

func TestNewPostgres(t *testing.T) {
	t.Run("applies pool settings", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		stubOpen(t, db, nil)
		mock.ExpectPing()

		got, err := NewPostgres(context.Background(), reportsDB())
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Equal(t, 8, got.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open failure", func(t *testing.T) {
		stubOpen(t, nil, errors.New("driver missing"))

		got, err := NewPostgres(context.Background(), reportsDB())
		assert.ErrorContains(t, err, "sql open: driver missing")
		assert.Nil(t, got)
	})

	t.Run("ping failure closes the pool", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		mock.ExpectClose()

		got, err := NewPostgres(context.Background(), reportsDB())
		assert.ErrorContains(t, err, "db ping: connection refused")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("incomplete config never opens", func(t *testing.T) {
		stubOpen(t, nil, errors.New("must not be called"))

		got, err := NewPostgres(context.Background(), config.DatabaseConfig{Host: "pg"})
		assert.ErrorContains(t, err, "missing")
		assert.Nil(t, got)
	})
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	check := Ping(db)
	assert.NoError(t, check(context.Background()))
	assert.ErrorContains(t, check(context.Background()), "db ping: down")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnabled(t *testing.T) {
	assert.False(t, Enabled(config.DatabaseConfig{Port: "5432"}))
	assert.True(t, Enabled(config.DatabaseConfig{Host: "db"}))
}
