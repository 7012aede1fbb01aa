package database

import (
	"testing"

	"github.com/asakaida/riskmap/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func TestPostgres_Close(t *testing.T) {
	pg := &Postgres{DB: nil}
	assert.NoError(t, pg.Close())
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     99999,
		User:     "invalid",
		Password: "invalid",
		Database: "invalid",
		SSLMode:  "disable",
	}

	pg, err := NewPostgres(cfg)
	if err == nil && pg != nil {
		pg.Close()
	}
	assert.Error(t, err)
}

func TestMigrationsPath(t *testing.T) {
	assert.Equal(t,
		"/srv/riskmap/internal/infrastructure/database/migrations/postgres",
		MigrationsPath("/srv/riskmap"),
	)
}
