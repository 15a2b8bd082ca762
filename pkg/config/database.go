package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"SIGNUP_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SIGNUP_PG_PORT" env-default:"5432"`
	Database string `env:"SIGNUP_PG_DATABASE" env-default:"signup_db"`
	User     string `env:"SIGNUP_PG_USER" env-default:"signup"`
	Password string `env:"SIGNUP_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"SIGNUP_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// NewDatabaseConfigFromEnv creates a DatabaseConfig from environment variables
func NewDatabaseConfigFromEnv() DatabaseConfig {
	return DatabaseConfig{
		Host:     GetEnvOrDefault("SIGNUP_PG_HOST", "localhost"),
		Port:     GetEnvUint16("SIGNUP_PG_PORT", 5432),
		Database: GetEnvOrDefault("SIGNUP_PG_DATABASE", "signup_db"),
		User:     GetEnvOrDefault("SIGNUP_PG_USER", "signup"),
		Password: GetEnvOrDefault("SIGNUP_PG_PASSWORD", "pwd"),
		Schema:   GetEnvOrDefault("SIGNUP_PG_SCHEMA", "public"),
	}
}
