package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/datacatalog/internal/db"
)

func LoadDBConfig(configPath string) (db.Config, error) {
	// Start with default
	cfg := db.DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()     // allow environment overrides
	v.SetEnvPrefix("DB") // map env vars like DB_HOST, DB_PORT

	// Optional: Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	// Override defaults if values exist
	if v.IsSet("database.host") {
		cfg.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.SSLMode = v.GetString("database.sslmode")
	}

	return cfg, nil
}

// ServerConfig holds HTTP server and export worker settings.
type ServerConfig struct {
	Port            int
	AllowedOrigins  []string
	MaxFileBytes    int64
	ExportDirectory string
	ExportRetention time.Duration
	ExportSecret    string
}

// DefaultServerConfig returns the server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		AllowedOrigins:  []string{"http://localhost:3000"},
		MaxFileBytes:    50 * 1024 * 1024,
		ExportDirectory: "exports",
		ExportRetention: 24 * time.Hour,
	}
}

func LoadServerConfig(configPath string) (ServerConfig, error) {
	cfg := DefaultServerConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP") // map env vars like APP_PORT, APP_EXPORT_SECRET

	v.BindEnv("server.port")
	v.BindEnv("server.allowed_origins")
	v.BindEnv("server.max_file_bytes")
	v.BindEnv("export.directory")
	v.BindEnv("export.retention")
	v.BindEnv("export.secret")

	if err := v.ReadInConfig(); err == nil {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("server.port") {
		cfg.Port = v.GetInt("server.port")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("server.max_file_bytes") {
		cfg.MaxFileBytes = v.GetInt64("server.max_file_bytes")
	}
	if v.IsSet("export.directory") {
		cfg.ExportDirectory = v.GetString("export.directory")
	}
	if v.IsSet("export.retention") {
		cfg.ExportRetention = v.GetDuration("export.retention")
	}
	if v.IsSet("export.secret") {
		cfg.ExportSecret = v.GetString("export.secret")
	}

	return cfg, nil
}
