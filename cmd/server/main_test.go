package main

import (
	"testing"
	"time"

	"github.com/ericfitz/drawroom/api"
	"github.com/ericfitz/drawroom/internal/config"
	"github.com/ericfitz/drawroom/internal/db"
	"github.com/stretchr/testify/assert"
)

func TestBrokerConfig(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		cfg := &config.Config{
			Server: config.ServerConfig{AllowedOrigins: []string{"https://draw.example.com"}},
			WebSocket: config.WebSocketConfig{
				ReadLimitBytes: 1024,
				SendBufferSize: 8,
				PongWait:       30 * time.Second,
				WriteWait:      time.Second,
				StoreTimeout:   2 * time.Second,
				LogMessages:    true,
			},
		}

		bc := brokerConfig(cfg)
		assert.Equal(t, int64(1024), bc.ReadLimit)
		assert.Equal(t, 8, bc.SendBufferSize)
		assert.Equal(t, 30*time.Second, bc.PongWait)
		assert.Equal(t, 27*time.Second, bc.PingPeriod)
		assert.Equal(t, time.Second, bc.WriteWait)
		assert.Equal(t, 2*time.Second, bc.StoreTimeout)
		assert.Equal(t, []string{"https://draw.example.com"}, bc.AllowedOrigins)
		assert.True(t, bc.Logging.Enabled)
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		bc := brokerConfig(&config.Config{})
		defaults := api.DefaultBrokerConfig()
		assert.Equal(t, defaults.ReadLimit, bc.ReadLimit)
		assert.Equal(t, defaults.SendBufferSize, bc.SendBufferSize)
		assert.Equal(t, defaults.PingPeriod, bc.PingPeriod)
	})
}

func TestGormConfig(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
		Postgres: config.PostgresConfig{
			Host: "pg", Port: "5432", User: "u", Password: "p", Database: "d", SSLMode: "require",
		},
	}}

	gc := gormConfig(cfg)
	assert.Equal(t, db.DatabaseTypeSQLite, gc.Type)
	assert.Equal(t, ":memory:", gc.SQLitePath)
	assert.Equal(t, "pg", gc.PostgresHost)
	assert.Equal(t, "require", gc.PostgresSSLMode)
}
