package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/futsal/go/internal/dbconfig"
	"github.com/mcdev12/futsal/go/internal/match/persistence"
	"github.com/mcdev12/futsal/go/internal/match/relay"
	"github.com/mcdev12/futsal/go/internal/match/replication"
	"github.com/mcdev12/futsal/go/internal/match/statestore"
)

// Engine holds the match tuning read from the YAML file.
type Engine struct {
	statestore.Rules `yaml:",inline"`
	MaxTickElapsed   time.Duration `yaml:"max_tick_elapsed" validate:"gt=0"`
	SaveInterval     time.Duration `yaml:"save_interval" validate:"gte=0"`
}

type Replication struct {
	SubjectPrefix string `yaml:"subject_prefix" validate:"required"`
}

type Relay struct {
	Stream   relay.JetStreamConfig `yaml:",inline"`
	Listener relay.ListenerConfig  `yaml:"listener"`
	Health   relay.HealthConfig    `yaml:"health"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
}

type NATS struct {
	URL string `validate:"required"`
}

type Config struct {
	Port        string `yaml:"-" validate:"required,numeric"`
	ReplicaID   string `yaml:"-" validate:"required"`
	RunClock    bool   `yaml:"-"`
	StoreDriver string `yaml:"-" validate:"oneof=postgres sqlite"`
	SQLitePath  string `yaml:"-" validate:"required_if=StoreDriver sqlite"`
	CacheDriver string `yaml:"-" validate:"oneof=redis memory none"`
	RedisAddr   string `yaml:"-" validate:"required_if=CacheDriver redis"`
	BusDriver   string `yaml:"-" validate:"oneof=nats memory"`

	Database dbconfig.Config `yaml:"-"`
	NATS     NATS            `yaml:"-"`

	Log         LogConfig                `yaml:"log"`
	Engine      Engine                   `yaml:",inline"`
	EventRetry  persistence.WriterConfig `yaml:"event_retry"`
	Replication Replication              `yaml:"replication"`
	Relay       Relay                    `yaml:"relay"`
	Cache       Cache                    `yaml:"cache"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		RunClock:    true,
		StoreDriver: "postgres",
		SQLitePath:  "futsal.db",
		CacheDriver: "memory",
		RedisAddr:   "localhost:6379",
		BusDriver:   "memory",
		NATS:        NATS{URL: "nats://127.0.0.1:4222"},
		Log:         LogConfig{Level: "info"},
		Engine: Engine{
			Rules:          statestore.DefaultRules(),
			MaxTickElapsed: 30 * time.Second,
			SaveInterval:   30 * time.Second,
		},
		EventRetry:  persistence.DefaultWriterConfig(),
		Replication: Replication{SubjectPrefix: replication.DefaultSubjectPrefix},
		Relay: Relay{
			Stream:   relay.DefaultJetStreamConfig(),
			Listener: relay.DefaultListenerConfig(),
			Health:   relay.DefaultHealthConfig(),
		},
		Cache: Cache{TTL: 6 * time.Hour},
	}
}

// Load reads .env, then the YAML file named by FUTSAL_CONFIG, then the
// environment. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg := Default()
	if path := os.Getenv("FUTSAL_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the defaults keeps every key the file leaves out.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.ReplicaID = getEnv("REPLICA_ID", c.ReplicaID)
	if c.ReplicaID == "" {
		c.ReplicaID = uuid.NewString()
	}
	c.RunClock = getEnvAsBool("RUN_CLOCK", c.RunClock)
	c.StoreDriver = getEnv("STORE_DRIVER", c.StoreDriver)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.CacheDriver = getEnv("CACHE_DRIVER", c.CacheDriver)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.BusDriver = getEnv("BUS_DRIVER", c.BusDriver)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Database = dbconfig.NewConfigFromEnv()
}

var validate = validator.New()

// Validate checks drivers, addresses and tuning values.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Engine.PeriodLength <= 0 || c.Engine.ActiveRosterSize <= 0 {
		return fmt.Errorf("invalid config: period length and active roster size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
