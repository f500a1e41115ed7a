package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env           string        `yaml:"env" env:"COMBISALES_ENV" env-default:"local"`
	HTTPAddr      string        `yaml:"http_addr" env:"COMBISALES_HTTP_ADDR" env-default:":8080"`
	GRPCAddr      string        `yaml:"grpc_addr" env:"COMBISALES_GRPC_ADDR" env-default:":9090"`
	StorageDSN    string        `yaml:"storage_dsn" env:"COMBISALES_PG_DSN"`
	SessionSecret string        `yaml:"session_secret" env:"COMBISALES_SESSION_SECRET" env-required:"true"`
	SessionTTL    time.Duration `yaml:"session_ttl" env:"COMBISALES_SESSION_TTL" env-default:"12h"`
	CronSecret    string        `yaml:"cron_secret" env:"COMBISALES_CRON_SECRET" env-required:"true"`
	Zoho          ZohoConfig    `yaml:"zoho"`
	Refresh       RefreshConfig `yaml:"refresh"`
	Audit         AuditConfig   `yaml:"audit"`
}

type ZohoConfig struct {
	ClientID     string        `yaml:"client_id" env:"COMBISALES_ZOHO_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"COMBISALES_ZOHO_CLIENT_SECRET"`
	TokenURL     string        `yaml:"token_url" env:"COMBISALES_ZOHO_TOKEN_URL" env-default:"https://accounts.zoho.com/oauth/v2/token"`
	Timeout      time.Duration `yaml:"timeout" env-default:"10s"`
}

type RefreshConfig struct {
	InteractiveWindow time.Duration `yaml:"interactive_window" env-default:"5m"`
	BatchWindow       time.Duration `yaml:"batch_window" env-default:"10m"`
}

type AuditConfig struct {
	RetentionDays int `yaml:"retention_days" env:"COMBISALES_AUDIT_RETENTION_DAYS" env-default:"90"`
}

// MustLoad reads configuration from the path given by the -config flag or
// CONFIG_PATH. With no path it falls back to environment variables only.
func MustLoad() *Config {
	path := fetchConfigPath()

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			panic(err)
		}
		return &cfg
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config path does not exist: " + path)
	}
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// MustLoadPath reads configuration from an explicit path.
func MustLoadPath(path string) *Config {
	if path == "" {
		panic("config path is empty")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		panic("config path does not exist: " + path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Priority: flag > env > default
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
