// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Database DatabaseConfig `mapstructure:"database"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	ListenAddr  string `mapstructure:"listen_addr"`
}

// ChatConfig holds the query-pipeline knobs.
type ChatConfig struct {
	PageSize            int     `mapstructure:"page_size"`
	MaxConcurrentAI     int     `mapstructure:"max_concurrent_ai"`
	AIQueueTimeout      int     `mapstructure:"ai_queue_timeout"`     // milliseconds
	CategoryCacheTTL    int     `mapstructure:"category_cache_ttl"`   // seconds
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"` // cosine, 0..1
	HistoryWindow       int     `mapstructure:"history_window"`       // turns fed to the intent prompt
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses    []string `mapstructure:"addresses"`
	Username     string   `mapstructure:"username"`
	Password     string   `mapstructure:"password"`
	ProductIndex string   `mapstructure:"product_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// APIsConfig holds settings for the external GenAI services.
type APIsConfig struct {
	GenAI struct {
		BaseURL        string `mapstructure:"base_url"`
		APIKey         string `mapstructure:"api_key"`
		ChatModel      string `mapstructure:"chat_model"`
		EmbeddingModel string `mapstructure:"embedding_model"`
		Timeout        int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`
}

// SyncConfig holds settings for the embedding-sync batch job.
type SyncConfig struct {
	Interval    int `mapstructure:"interval"`    // minutes between sweeps
	Concurrency int `mapstructure:"concurrency"` // parallel embedding calls
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
