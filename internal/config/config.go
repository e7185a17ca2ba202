package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию сервиса генерации слайдов.
type Config struct {
	// Настройки HTTP сервера
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// Настройки логирования
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Настройки AI (любой OpenAI-совместимый провайдер)
	AIBaseURL        string        `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel          string        `envconfig:"AI_MODEL" default:"google/gemini-2.5-flash"`
	AITimeout        time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	AIMaxAttempts    int           `envconfig:"AI_MAX_ATTEMPTS" default:"3"`
	AIBaseRetryDelay time.Duration `envconfig:"AI_BASE_RETRY_DELAY" default:"1s"`
	// Секретное поле БЕЗ envconfig тега, читается отдельно
	AIAPIKey string

	// Настройки генератора изображений
	ImageAPIBaseURL  string        `envconfig:"IMAGE_API_BASE_URL" default:"http://localhost:8570"`
	ImageAPITimeout  time.Duration `envconfig:"IMAGE_API_TIMEOUT" default:"90s"`
	ImageMaxAttempts int           `envconfig:"IMAGE_MAX_ATTEMPTS" default:"3"`
	ImageRatio       string        `envconfig:"IMAGE_RATIO" default:"16:9"`

	// Настройки извлечения контента из URL
	ExtractorTimeout time.Duration `envconfig:"EXTRACTOR_TIMEOUT" default:"30s"`

	// Настройки хранилища. Если RedisAddr пуст, используется файловое
	// KV-хранилище в DataDir.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	DataDir       string `envconfig:"DATA_DIR" default:"./data"`

	// Автосохранение: задержка debounce перед записью снимка
	AutoSaveDebounce time.Duration `envconfig:"AUTOSAVE_DEBOUNCE" default:"2s"`

	// Rate limit генерации
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// CORS: список разрешенных origin'ов через запятую
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

// GetAllowedOrigins разбирает CORSAllowedOrigins в срез origin'ов.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// Load загружает конфигурацию из .env (если есть) и переменных окружения.
func Load() (*Config, error) {
	// .env опционален, его отсутствие не ошибка
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Секреты читаем напрямую, мимо envconfig, чтобы они не попали в логи
	cfg.AIAPIKey = os.Getenv("AI_API_KEY")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	log.Printf("Конфигурация загружена:")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  AI Base URL: %s", cfg.AIBaseURL)
	log.Printf("  AI Model: %s", cfg.AIModel)
	log.Printf("  AI Timeout: %v", cfg.AITimeout)
	log.Printf("  Image API: %s", cfg.ImageAPIBaseURL)
	log.Printf("  Redis Addr: %s", storeDescription(cfg.RedisAddr))
	log.Printf("  Data Dir: %s", cfg.DataDir)
	log.Printf("  AI API Key: %s", loadedMark(cfg.AIAPIKey))

	return &cfg, nil
}

func storeDescription(addr string) string {
	if addr == "" {
		return "[not set, using file store]"
	}
	return addr
}

func loadedMark(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	return "[LOADED]"
}
