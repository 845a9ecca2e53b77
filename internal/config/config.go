package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию для Storyboard Server
type Config struct {
	// Настройки сервера
	Port               string `envconfig:"SERVER_PORT" default:"8080"`
	Env                string `envconfig:"ENV" default:"production"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// Хранилище: memory | file | redis | postgres | mongo
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"`
	FileStorageDir string `envconfig:"FILE_STORAGE_DIR" default:"./data"`

	// Настройки Redis
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0"`
	RedisNamespace string `envconfig:"REDIS_NAMESPACE" default:"storyboard:"`

	// Настройки PostgreSQL
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"storyboard"`
	DBSSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`

	// Настройки MongoDB
	MongoURI        string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase   string `envconfig:"MONGO_DATABASE" default:"storyboard"`
	MongoCollection string `envconfig:"MONGO_COLLECTION" default:"kv_entries"`

	// AI клиент: openai | ollama | stub
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIAPIKey     string        `envconfig:"AI_API_KEY"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel      string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`

	// Генерация изображений
	ImageModel string `envconfig:"IMAGE_MODEL" default:"dall-e-3"`
	ImageSize  string `envconfig:"IMAGE_SIZE" default:"1792x1024"`

	// Рендер-сервер для видео
	RenderServerURL string        `envconfig:"RENDER_SERVER_URL"`
	RenderTimeout   time.Duration `envconfig:"RENDER_TIMEOUT" default:"30s"`
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins разбирает список разрешенных CORS origins
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации storyboard-server: %w", err)
	}

	log.Printf("Конфигурация Storyboard Server загружена:")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  Storage Backend: %s", cfg.StorageBackend)
	log.Printf("  AI Client: %s (model %s)", cfg.AIClientType, cfg.AIModel)

	return &cfg, nil
}
