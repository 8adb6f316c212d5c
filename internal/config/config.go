// Пакет config — загрузка и валидация конфигурации File Registry
// из переменных окружения.
// Конфигурация строится один раз при старте процесса и передаётся
// по ссылке — глобального мутабельного состояния нет.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации File Registry.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Реестр ---

	// Общий секрет загрузки (и удаления) файлов
	UploadSecret string

	// --- Объектное хранилище (MinIO/S3) ---

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3UseSSL    bool
	// Срок жизни подписанных ссылок на скачивание (по умолчанию 15m)
	PresignTTL time.Duration

	// --- Кэш подписанных ссылок ---

	// Максимальное количество записей в кэше (по умолчанию 1024)
	URLCacheSize int
	// TTL записи кэша; должен быть меньше PresignTTL (по умолчанию 5m)
	URLCacheTTL time.Duration

	// --- SMTP-уведомления ---

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	// Адрес отправителя
	MailFrom string
	// Адрес администратора, получающего заявки на доступ
	MailTo string

	// --- Мониторинг зависимостей (topologymetrics) ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей (по умолчанию 30s)
	DephealthCheckInterval time.Duration
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FR_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FR_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FR_PORT: %w", err)
	}

	// FR_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("FR_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("FR_LOG_LEVEL: %w", err)
	}

	// FR_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FR_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FR_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("FR_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FR_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("FR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("FR_DB_HOST", "localhost")
	cfg.DBPort, err = getEnvInt("FR_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("FR_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("FR_DB_NAME", "fileregistry")
	if cfg.DBUser, err = getEnvRequired("FR_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("FR_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("FR_DB_SSLMODE", "disable")

	// --- Реестр ---

	// FR_UPLOAD_SECRET — общий секрет загрузки (обязательная)
	if cfg.UploadSecret, err = getEnvRequired("FR_UPLOAD_SECRET"); err != nil {
		return nil, err
	}

	// --- Объектное хранилище ---

	if cfg.S3Endpoint, err = getEnvRequired("FR_S3_ENDPOINT"); err != nil {
		return nil, err
	}
	if cfg.S3AccessKey, err = getEnvRequired("FR_S3_ACCESS_KEY"); err != nil {
		return nil, err
	}
	if cfg.S3SecretKey, err = getEnvRequired("FR_S3_SECRET_KEY"); err != nil {
		return nil, err
	}
	cfg.S3Bucket = getEnvDefault("FR_S3_BUCKET", "file-registry")
	cfg.S3UseSSL, err = getEnvBool("FR_S3_USE_SSL", false)
	if err != nil {
		return nil, fmt.Errorf("FR_S3_USE_SSL: %w", err)
	}
	cfg.PresignTTL, err = getEnvDuration("FR_PRESIGN_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FR_PRESIGN_TTL: %w", err)
	}

	// --- Кэш подписанных ссылок ---

	cfg.URLCacheSize, err = getEnvInt("FR_URL_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("FR_URL_CACHE_SIZE: %w", err)
	}
	cfg.URLCacheTTL, err = getEnvDuration("FR_URL_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FR_URL_CACHE_TTL: %w", err)
	}
	// Кэшированная ссылка не должна жить дольше своей подписи
	if cfg.URLCacheTTL >= cfg.PresignTTL {
		return nil, fmt.Errorf("FR_URL_CACHE_TTL (%s) должен быть меньше FR_PRESIGN_TTL (%s)",
			cfg.URLCacheTTL, cfg.PresignTTL)
	}

	// --- SMTP-уведомления ---

	if cfg.SMTPHost, err = getEnvRequired("FR_SMTP_HOST"); err != nil {
		return nil, err
	}
	cfg.SMTPPort, err = getEnvInt("FR_SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("FR_SMTP_PORT: %w", err)
	}
	cfg.SMTPUser = getEnvDefault("FR_SMTP_USER", "")
	cfg.SMTPPassword = getEnvDefault("FR_SMTP_PASSWORD", "")
	if cfg.MailFrom, err = getEnvRequired("FR_MAIL_FROM"); err != nil {
		return nil, err
	}
	if cfg.MailTo, err = getEnvRequired("FR_MAIL_TO"); err != nil {
		return nil, err
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("FR_DEPHEALTH_GROUP", "file-registry")
	cfg.DephealthCheckInterval, err = getEnvDuration("FR_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для лейблов метрик dephealth, не для подключения).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
