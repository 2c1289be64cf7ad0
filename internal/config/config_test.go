package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("DEFAULT_MAX_RESALE_PERCENTAGE", "")

	cfg := Load()

	assert.Equal(t, ":8084", cfg.Server.Port)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, uint32(110), cfg.Marketplace.DefaultMaxResalePercentage)
	assert.Equal(t, uint32(5), cfg.Marketplace.DefaultRoyaltyPercentage)
	assert.Equal(t, "db", cfg.Marketplace.Ledger)
	assert.Equal(t, time.Second, cfg.Kafka.RelayInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("DEFAULT_ROYALTY_PERCENTAGE", "7")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg := Load()

	assert.Equal(t, ":9000", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, uint32(7), cfg.Marketplace.DefaultRoyaltyPercentage)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}
