package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port            string        `envconfig:"PORT"                   default:"3000"`
	MongoURI        string        `envconfig:"MONGO_URI"              required:"true"`
	MongoDBName     string        `envconfig:"MONGO_DB_NAME"          default:"shop"`
	RedisAddr       string        `envconfig:"REDIS_ADDR"             default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	KafkaBrokers    []string      `envconfig:"KAFKA_BROKERS"          default:"localhost:9092"`
	KafkaTopic      string        `envconfig:"KAFKA_TOPIC"            default:"checkout-finalized"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT"        default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT"       default:"10s"`
	CatalogTimeout  time.Duration `envconfig:"CATALOG_TIMEOUT"        default:"2s"`
	LogLevel        string        `envconfig:"LOG_LEVEL"              default:"info"`
	MaxBodyBytes    int64         `envconfig:"MAX_REQUEST_BODY_BYTES" default:"1048576"`
}

// Load reads the optional dotenv files (".env" when none are given) and then
// the process environment. Variables already set in the environment win over
// the files.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS must list at least one broker")
	}
	if c.RequestTimeout <= 0 || c.ShutdownTimeout <= 0 || c.CatalogTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
