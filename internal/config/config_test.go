package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "local", cfg.GroupRegion)
				assert.Equal(t, "default", cfg.GroupName)
				assert.Equal(t, StoreBackendFile, cfg.StoreBackend)
				assert.Equal(t, "file://./data", cfg.FileStoreBucketURL)
				assert.Equal(t, "mem://secrets/", cfg.TableStoreCollectionURL)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, EncryptorMasterKey, cfg.Encryptor)
				assert.Equal(t, "aes-gcm", cfg.EncryptionAlgorithm)
				assert.Equal(t, 50.0, cfg.KMSRateLimitPerSec)
				assert.Equal(t, 100, cfg.KMSRateLimitBurst)
				assert.Equal(t, "unknown", cfg.Actor)
				assert.Equal(t, 8, cfg.DecryptConcurrency)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, "secretsgroup", cfg.MetricsNamespace)
				assert.Empty(t, cfg.MetricsPushgatewayURL)
			},
		},
		{
			name: "load custom group and store configuration",
			envVars: map[string]string{
				"SECRETS_GROUP_REGION":       "eu-west-1",
				"SECRETS_GROUP_NAME":         "payments",
				"STORE_BACKEND":              "table",
				"TABLE_STORE_COLLECTION_URL": "dynamodb://secrets?partition_key=pk&sort_key=sk",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "eu-west-1", cfg.GroupRegion)
				assert.Equal(t, "payments", cfg.GroupName)
				assert.Equal(t, StoreBackendTable, cfg.StoreBackend)
				assert.Equal(t, "dynamodb://secrets?partition_key=pk&sort_key=sk", cfg.TableStoreCollectionURL)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_MAX_IDLE_CONNECTIONS": "10",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load custom encryption configuration",
			envVars: map[string]string{
				"ENCRYPTOR":              "kms",
				"KMS_KEY_URI":            "awskms://alias/secrets?region=us-east-1",
				"KMS_RATE_LIMIT_PER_SEC": "5.5",
				"KMS_RATE_LIMIT_BURST":   "3",
				"ENCRYPTION_ALGORITHM":   "chacha20-poly1305",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, EncryptorKMS, cfg.Encryptor)
				assert.Equal(t, "awskms://alias/secrets?region=us-east-1", cfg.KMSKeyURI)
				assert.Equal(t, 5.5, cfg.KMSRateLimitPerSec)
				assert.Equal(t, 3, cfg.KMSRateLimitBurst)
				assert.Equal(t, "chacha20-poly1305", cfg.EncryptionAlgorithm)
			},
		},
		{
			name: "actor falls back to USER",
			envVars: map[string]string{
				"USER": "alice",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "alice", cfg.Actor)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()

			tt.validate(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GroupRegion:         "local",
			GroupName:           "default",
			StoreBackend:        StoreBackendFile,
			FileStoreBucketURL:  "mem://",
			Encryptor:           EncryptorMasterKey,
			EncryptionAlgorithm: "aes-gcm",
			DecryptConcurrency:  8,
		}
	}

	t.Run("Success_Defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "Error_UnknownBackend", mutate: func(c *Config) { c.StoreBackend = "redis" }},
		{name: "Error_MissingGroupName", mutate: func(c *Config) { c.GroupName = "" }},
		{name: "Error_SQLWithoutDSN", mutate: func(c *Config) {
			c.StoreBackend = StoreBackendPostgres
			c.DBConnectionString = ""
		}},
		{name: "Error_KMSWithoutURI", mutate: func(c *Config) { c.Encryptor = EncryptorKMS }},
		{name: "Error_UnknownAlgorithm", mutate: func(c *Config) { c.EncryptionAlgorithm = "des" }},
		{name: "Error_ZeroConcurrency", mutate: func(c *Config) { c.DecryptConcurrency = 0 }},
		{name: "Error_NegativeConcurrency", mutate: func(c *Config) { c.DecryptConcurrency = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_DBDriverFor(t *testing.T) {
	cfg := &Config{StoreBackend: StoreBackendMySQL, DBDriver: "postgres"}
	assert.Equal(t, "mysql", cfg.DBDriverFor())

	cfg.StoreBackend = StoreBackendFile
	assert.Equal(t, "postgres", cfg.DBDriverFor())
}
