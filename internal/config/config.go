package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Storage struct {
		Driver string
		Path   string
		// EncryptionKey enables encryption of stored values when set.
		EncryptionKey string `mapstructure:"encryption_key"`
	} `mapstructure:"storage"`

	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	} `mapstructure:"redis"`

	Telegram struct {
		Token string
	} `mapstructure:"telegram"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

// Load reads configuration from defaults, an optional config file at path,
// a .env file in the working directory and ATTENDANCE_* environment
// variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	var c Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("storage.driver", DriverBadger)
	v.SetDefault("storage.path", "attendance.db")
	v.SetDefault("storage.encryption_key", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("metrics.enabled", true)

	v.SetEnvPrefix("ATTENDANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("unmarshal config: %w", err)
	}

	switch c.Storage.Driver {
	case DriverBadger, DriverSQLite, DriverRedis:
	default:
		return c, fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	return c, nil
}
