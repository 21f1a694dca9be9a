package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath = "config.toml"
	DefaultHTTPAddr   = ":8080"
	DefaultPGHost     = "127.0.0.1"
	DefaultPGPort     = 5432
	DefaultPGUser     = "postgres"
	DefaultPGDatabase = "inkwell"
	DefaultPGSSLMode  = "disable"
	DefaultLLMBaseURL = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultDocBaseURL = "https://www.feishu.cn/docx/"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Feishu   FeishuConfig   `toml:"feishu"`
	LLM      LLMConfig      `toml:"llm"`
	Postgres PostgresConfig `toml:"postgres"`
	Diary    DiaryConfig    `toml:"diary"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// FeishuConfig holds the open-platform app credentials. EncryptKey is
// optional; when empty, encrypted webhook envelopes are rejected.
type FeishuConfig struct {
	AppID             string `toml:"app_id"`
	AppSecret         string `toml:"app_secret"`
	EncryptKey        string `toml:"encrypt_key"`
	VerificationToken string `toml:"verification_token"`
	Region            string `toml:"region"`
}

type LLMConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type DiaryConfig struct {
	DocBaseURL string `toml:"doc_base_url"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Feishu: FeishuConfig{
			Region: "feishu",
		},
		LLM: LLMConfig{
			BaseURL: DefaultLLMBaseURL,
			Model:   DefaultLLMModel,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Diary: DiaryConfig{
			DocBaseURL: DefaultDocBaseURL,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
