package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "shop", cfg.MongoDBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "checkout-finalized", cfg.KafkaTopic)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.CatalogTimeout)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("PORT", "8080")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FromDotenvFile(t *testing.T) {
	// Registered so t.Setenv restores the original state afterwards.
	t.Setenv("MONGO_URI", "")
	require.NoError(t, os.Unsetenv("MONGO_URI"))
	t.Setenv("MONGO_DB_NAME", "from-env")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_URI=mongodb://file:27017\nMONGO_DB_NAME=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MONGO_URI") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://file:27017", cfg.MongoURI)
	assert.Equal(t, "from-env", cfg.MongoDBName)
}

func TestLoad_MissingMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	require.NoError(t, os.Unsetenv("MONGO_URI"))

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("REQUEST_TIMEOUT", "0s")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
