package config

import (
	"fmt"
	"net/url"
	"os"
)

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

func GetConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnv("POSTGRES_PORT", "5432"),
		User:     getEnv("POSTGRES_USER", "postgres"),
		Password: getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:   getEnv("POSTGRES_NAME", "postgres"),
		SSLMode:  "disable",
		MaxConns: 4,
	}
}

// GetConnectionString returns a lib/pq keyword DSN.
func (pc *PostgresConfig) GetConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.sslMode())
}

// URL returns the same settings as a postgres:// URL, the form pgxpool.ParseConfig expects.
func (pc *PostgresConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pc.User, pc.Password),
		Host:     pc.Host + ":" + pc.Port,
		Path:     "/" + pc.DBName,
		RawQuery: "sslmode=" + pc.sslMode(),
	}
	return u.String()
}

func (pc *PostgresConfig) sslMode() string {
	if pc.SSLMode == "" {
		return "disable"
	}
	return pc.SSLMode
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
