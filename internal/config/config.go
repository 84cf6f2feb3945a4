package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vlan-traffic-simulator/internal/store"
)

const (
	ProviderFile   = "file"
	ProviderMySQL  = "mysql"
	ProviderSQLite = "sqlite"

	RecorderMemory = "memory"
	RecorderDB     = "db"
	RecorderRedis  = "redis"
)

type LogRotationConfig struct {
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	MaxSize    int  `mapstructure:"maxSize"`
	MaxAge     int  `mapstructure:"maxAge"`
	MaxBackups int  `mapstructure:"maxBackups"`
	LocalTime  bool `mapstructure:"localTime"`
	Compress   bool `mapstructure:"compress"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is stderr, stdout or a file path.
	Output   string             `mapstructure:"output"`
	Rotation *LogRotationConfig `mapstructure:"rotation"`
}

type TopologyConfig struct {
	Provider string `mapstructure:"provider"`
	File     string `mapstructure:"file"`
}

type StoreConfig struct {
	Driver string           `mapstructure:"driver"`
	DSN    string           `mapstructure:"dsn"`
	Pool   store.PoolConfig `mapstructure:"pool"`
	Seed   bool             `mapstructure:"seed"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AccessLog       bool          `mapstructure:"accessLog"`
	RateLimit       float64       `mapstructure:"rateLimit"`
	Burst           int           `mapstructure:"burst"`
	AllowOrigins    []string      `mapstructure:"allowOrigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type RecorderConfig struct {
	Type     string      `mapstructure:"type"`
	Capacity int         `mapstructure:"capacity"`
	Redis    RedisConfig `mapstructure:"redis"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type EngineConfig struct {
	// Seed makes inspection reproducible; zero draws from the shared source.
	Seed        uint64 `mapstructure:"seed"`
	MatchByName bool   `mapstructure:"matchByName"`
}

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Topology TopologyConfig `mapstructure:"topology"`
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("topology.provider", ProviderFile)
	v.SetDefault("topology.file", "")

	v.SetDefault("store.driver", ProviderSQLite)
	v.SetDefault("store.dsn", "file:simulator.db?cache=shared")
	v.SetDefault("store.pool.maxOpen", 10)
	v.SetDefault("store.pool.maxIdle", 5)
	v.SetDefault("store.pool.maxLifetimeSec", 300)
	v.SetDefault("store.seed", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.accessLog", true)
	v.SetDefault("server.rateLimit", 0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.allowOrigins", []string{})
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("recorder.type", RecorderMemory)
	v.SetDefault("recorder.capacity", 50)
	v.SetDefault("recorder.redis.addr", "127.0.0.1:6379")
	v.SetDefault("recorder.redis.username", "")
	v.SetDefault("recorder.redis.password", "")
	v.SetDefault("recorder.redis.db", 0)
	v.SetDefault("recorder.redis.key", "vlan-sim:decisions")

	v.SetDefault("cache.ttl", 30*time.Second)

	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.matchByName", false)
}

// Load reads simulator.yaml from path, or from the standard search paths when
// path is empty, and applies SIM_ environment overrides. A missing file is
// only an error when path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("simulator")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/vlan-sim/")
		v.AddConfigPath("$HOME/.vlan-sim/")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.Topology.Provider) {
	case ProviderFile, ProviderMySQL, ProviderSQLite:
	default:
		return fmt.Errorf("unknown topology provider: %s", c.Topology.Provider)
	}
	switch strings.ToLower(c.Store.Driver) {
	case ProviderMySQL, ProviderSQLite:
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}
	switch strings.ToLower(c.Recorder.Type) {
	case RecorderMemory, RecorderDB, RecorderRedis:
	default:
		return fmt.Errorf("unknown recorder type: %s", c.Recorder.Type)
	}
	if c.Recorder.Type == RecorderDB && c.Topology.Provider == ProviderFile {
		return fmt.Errorf("recorder type %q needs a database topology provider", RecorderDB)
	}
	return nil
}
