package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines the gateway configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"CSMS_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"CSMS_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"CSMS_REDIS_ADDR"`
		Password string `yaml:"password" env:"CSMS_REDIS_PASSWORD"`
	} `yaml:"redis"`
	WebSocket struct {
		PingIntervalSeconds int `yaml:"pingIntervalSeconds" env:"CSMS_PING_INTERVAL"`
		WriteTimeoutSeconds int `yaml:"writeTimeoutSeconds" env:"CSMS_WRITE_TIMEOUT"`
	} `yaml:"websocket"`
	OCPP struct {
		HeartbeatIntervalSeconds int `yaml:"heartbeatIntervalSeconds" env:"CSMS_HEARTBEAT_INTERVAL"`
	} `yaml:"ocpp"`
}

// Load reads YAML/env config and validates required fields. Redis is
// optional: an empty addr disables the active-charge cache.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.WebSocket.PingIntervalSeconds = 30
	cfg.WebSocket.WriteTimeoutSeconds = 15
	cfg.OCPP.HeartbeatIntervalSeconds = 300

	if err := loadInto(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database DSN is required")
	}

	return cfg, nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// PingInterval returns the websocket keepalive ping interval.
func (c *Config) PingInterval() time.Duration {
	if c.WebSocket.PingIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WebSocket.PingIntervalSeconds) * time.Second
}

// WriteTimeout returns the websocket write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WebSocket.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.WebSocket.WriteTimeoutSeconds) * time.Second
}

// HeartbeatInterval is the cadence communicated to stations in
// BootNotification responses, in seconds.
func (c *Config) HeartbeatInterval() int {
	if c.OCPP.HeartbeatIntervalSeconds <= 0 {
		return 300
	}
	return c.OCPP.HeartbeatIntervalSeconds
}
