package config

import (
	"os"
	"time"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"gocatalog_sync/config/values"
)

type ShopConfig struct {
	Domain      string `yaml:"domain"`
	ApiVersion  string `yaml:"api_version"`
	AccessToken string `yaml:"access_token"`
	// Endpoint overrides the URL derived from Domain and ApiVersion.
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RequestsPerSecond limits every outbound call; 0 disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type AppConfig struct {
	Shop           ShopConfig                  `yaml:"shop"`
	Sync           SyncConfig                  `yaml:"sync"`
	Postgres       PostgresConfig              `yaml:"postgres"`
	Server         ServerConfig                `yaml:"server"`
	Classification values.ClassificationValues `yaml:"classification"`
}

// Default returns the configuration the pipeline runs with when no file overrides it.
func Default() *AppConfig {
	return &AppConfig{
		Shop: ShopConfig{
			ApiVersion:     "2024-01",
			RequestTimeout: 30 * time.Second,
		},
		Sync:     DefaultSyncConfig(),
		Postgres: *GetConfig(),
		Server:   ServerConfig{Addr: ":8082"},
	}
}

func LoadConfig(filename string) (*AppConfig, error) {
	cfg := Default()
	if filename != "" {
		file, err := os.Open(filename)
		if err != nil {
			return nil, errors.Wrap(err, "open config")
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "decode config %s", filename)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	c.Shop.Domain = getEnv("SHOP_DOMAIN", c.Shop.Domain)
	c.Shop.AccessToken = getEnv("SHOP_ACCESS_TOKEN", c.Shop.AccessToken)
	c.Shop.ApiVersion = getEnv("SHOP_API_VERSION", c.Shop.ApiVersion)
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Postgres.Host = getEnv("POSTGRES_HOST", c.Postgres.Host)
	c.Postgres.Port = getEnv("POSTGRES_PORT", c.Postgres.Port)
	c.Postgres.User = getEnv("POSTGRES_USER", c.Postgres.User)
	c.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Postgres.Password)
	c.Postgres.DBName = getEnv("POSTGRES_NAME", c.Postgres.DBName)
}

func (c *AppConfig) Validate() error {
	if c.Shop.Endpoint == "" && c.Shop.Domain == "" {
		return errors.New("shop.domain or shop.endpoint is required")
	}
	return c.Sync.Validate()
}

// GraphQLEndpoint returns the admin GraphQL URL of the shop.
func (s ShopConfig) GraphQLEndpoint() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return "https://" + s.Domain + "/admin/api/" + s.ApiVersion + "/graphql.json"
}
