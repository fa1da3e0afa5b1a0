// Package config loads process settings from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Server configures cmd/server.
type Server struct {
	ListenAddr     string        `env:"ARCH_LISTEN_ADDR"      envDefault:":8080"`
	PingInterval   time.Duration `env:"ARCH_PING_INTERVAL"    envDefault:"5s"`
	PingTimeout    time.Duration `env:"ARCH_PING_TIMEOUT"     envDefault:"3s"`
	SendBuffer     int           `env:"ARCH_SEND_BUFFER"      envDefault:"64"`
	LogLevel       string        `env:"ARCH_LOG_LEVEL"        envDefault:"info"`
	LogFormat      string        `env:"ARCH_LOG_FORMAT"       envDefault:"text"`
	AllowedOrigins []string      `env:"ARCH_ALLOWED_ORIGINS"  envSeparator:","`
	RedisURL       string        `env:"ARCH_REDIS_URL"`
	HistoryTTL     time.Duration `env:"ARCH_HISTORY_TTL"      envDefault:"24h"`
	DBDialect      string        `env:"ARCH_DB_DIALECT"       envDefault:"none"`
	SQLitePath     string        `env:"ARCH_DB_SQLITE_PATH"   envDefault:"tmp/archipelago.sqlite"`
	PostgresDSN    string        `env:"ARCH_DB_POSTGRES_DSN"`
	Seed           uint64        `env:"ARCH_SEED"`
}

// Client configures cmd/client.
type Client struct {
	ServerURL    string        `env:"ARCH_SERVER_URL"     envDefault:"ws://localhost:8080/ws"`
	Nickname     string        `env:"ARCH_NICKNAME"`
	Players      int           `env:"ARCH_PLAYERS"        envDefault:"2"`
	Expert       bool          `env:"ARCH_EXPERT"`
	LobbyID      string        `env:"ARCH_LOBBY_ID"`
	PingInterval time.Duration `env:"ARCH_PING_INTERVAL"  envDefault:"5s"`
	LogLevel     string        `env:"ARCH_LOG_LEVEL"      envDefault:"info"`
	LogFormat    string        `env:"ARCH_LOG_FORMAT"     envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv reads the given files into the environment without overriding
// variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadServer reads .env and the environment into a Server config.
func LoadServer() (Server, error) {
	var cfg Server
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the server cannot run with.
func (c Server) Validate() error {
	if c.PingInterval <= 0 {
		return errors.New("ARCH_PING_INTERVAL must be positive")
	}
	if c.PingTimeout <= 0 || c.PingTimeout > c.PingInterval {
		return errors.New("ARCH_PING_TIMEOUT must be positive and at most ARCH_PING_INTERVAL")
	}
	if c.SendBuffer < 1 {
		return errors.New("ARCH_SEND_BUFFER must be at least 1")
	}
	return nil
}

// LoadClient reads .env and the environment into a Client config.
func LoadClient() (Client, error) {
	var cfg Client
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.Nickname == "" {
		host, _ := os.Hostname()
		cfg.Nickname = fmt.Sprintf("bot-%s-%d", host, os.Getpid()%1000)
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
