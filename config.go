package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"linkedout/storage"
)

type Config struct {
	Port       int            `json:"port"`
	Env        string         `json:"env"`
	SessionKey string         `json:"session_key"`
	CSRFKey    string         `json:"csrf_key"`
	Database   PostgresConfig `json:"database"`
	Storage    storage.Config `json:"storage"`
	Redis      RedisConfig    `json:"redis"`
	AMQP       AMQPConfig     `json:"amqp"`
	OAuth      OAuthConfig    `json:"oauth"`
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (pc PostgresConfig) Dialect() string {
	return "postgres"
}

func (pc PostgresConfig) ConnectionInfo() string {
	if pc.Password == "" {
		return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Name)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pc.Host, pc.Port, pc.User, pc.Password, pc.Name)
}

// RedisConfig parameterizes the search cache. An empty Addr disables caching.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// AMQPConfig parameterizes the engagement event broker. An empty URL disables
// event publishing.
type AMQPConfig struct {
	URL string `json:"url"`
}

// OAuthConfig parameterizes the external identity provider.
type OAuthConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURL      string `json:"auth_url"`
	TokenURL     string `json:"token_url"`
	UserInfoURL  string `json:"user_info_url"`
	RedirectURL  string `json:"redirect_url"`
}

func DefaultConfig() Config {
	return Config{
		Port:       1111,
		Env:        "dev",
		SessionKey: "secret-session-key",
		CSRFKey:    "secret-csrf-key",
		Database:   DefaultPostgresConfig(),
		Storage: storage.Config{
			Type:       "filesystem",
			Root:       "blobs",
			BaseURL:    "http://localhost:1111",
			SigningKey: "secret-blob-key",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "",
		Name:     "linkedout",
	}
}

// LoadConfig reads .config.json if present, otherwise falls back to the
// default dev setup. In production the file is required. Secrets can be
// supplied through a .env file or the environment instead of the json file.
func LoadConfig(prod bool) Config {
	if err := godotenv.Load(); err == nil {
		fmt.Println("Successfully loaded .env")
	}

	c := DefaultConfig()
	f, err := os.Open(".config.json")
	if err != nil {
		if prod {
			panic("a .config.json file is required in production")
		}
	} else {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&c); err != nil {
			panic(err)
		}
		fmt.Println("Successfully loaded .config.json")
	}

	overrideFromEnv(&c.SessionKey, "SESSION_KEY")
	overrideFromEnv(&c.CSRFKey, "CSRF_KEY")
	overrideFromEnv(&c.Database.Password, "DB_PASSWORD")
	overrideFromEnv(&c.Redis.Password, "REDIS_PASSWORD")
	overrideFromEnv(&c.AMQP.URL, "AMQP_URL")
	overrideFromEnv(&c.OAuth.ClientID, "OAUTH_CLIENT_ID")
	overrideFromEnv(&c.OAuth.ClientSecret, "OAUTH_CLIENT_SECRET")
	overrideFromEnv(&c.Storage.SigningKey, "BLOB_SIGNING_KEY")
	overrideFromEnv(&c.Storage.AccessKeyID, "AWS_ACCESS_KEY_ID")
	overrideFromEnv(&c.Storage.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	return c
}

func overrideFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}
