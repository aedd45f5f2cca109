package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envOverrides lists the environment variables that override file settings.
// Empty values leave the file setting untouched.
type envOverrides struct {
	Source        string `envconfig:"CARDLAB_SOURCE"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	DBHost        string `envconfig:"DB_HOST"`
	DBPort        int    `envconfig:"DB_PORT"`
	DBUser        string `envconfig:"DB_USER"`
	DBPassword    string `envconfig:"DB_PASSWORD"`
	DBName        string `envconfig:"DB_NAME"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`
	ServerAddr    string `envconfig:"CARDLAB_ADDR"`
	OutputDir     string `envconfig:"CARDLAB_OUTPUT_DIR"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogFile       string `envconfig:"LOG_FILE"`
}

// loadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("process environment: %w", err)
	}

	setString(&cfg.Source, env.Source)
	setString(&cfg.Database.DSN, env.PostgresDSN)
	setString(&cfg.Database.Host, env.DBHost)
	setString(&cfg.Database.User, env.DBUser)
	setString(&cfg.Database.Password, env.DBPassword)
	setString(&cfg.Database.Name, env.DBName)
	if env.DBPort != 0 {
		cfg.Database.Port = env.DBPort
	}
	setString(&cfg.Clickhouse.DSN, env.ClickhouseDSN)
	setString(&cfg.Server.Addr, env.ServerAddr)
	setString(&cfg.Report.OutputDir, env.OutputDir)
	setString(&cfg.Logging.Level, env.LogLevel)
	setString(&cfg.Logging.File, env.LogFile)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
