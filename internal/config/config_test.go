package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllFREnvVars очищает все переменные окружения FR_* для чистого теста.
func clearAllFREnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"FR_PORT", "FR_LOG_LEVEL", "FR_LOG_FORMAT",
		"FR_HTTP_READ_TIMEOUT", "FR_HTTP_WRITE_TIMEOUT", "FR_HTTP_IDLE_TIMEOUT",
		"FR_SHUTDOWN_TIMEOUT",
		"FR_DB_HOST", "FR_DB_PORT", "FR_DB_NAME", "FR_DB_USER",
		"FR_DB_PASSWORD", "FR_DB_SSLMODE",
		"FR_UPLOAD_SECRET",
		"FR_S3_ENDPOINT", "FR_S3_ACCESS_KEY", "FR_S3_SECRET_KEY",
		"FR_S3_BUCKET", "FR_S3_USE_SSL", "FR_PRESIGN_TTL",
		"FR_URL_CACHE_SIZE", "FR_URL_CACHE_TTL",
		"FR_SMTP_HOST", "FR_SMTP_PORT", "FR_SMTP_USER", "FR_SMTP_PASSWORD",
		"FR_MAIL_FROM", "FR_MAIL_TO",
		"FR_DEPHEALTH_GROUP", "FR_DEPHEALTH_CHECK_INTERVAL", "DEPHEALTH_ISENTRY",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"FR_DB_USER":       "fileregistry",
		"FR_DB_PASSWORD":   "secret-db",
		"FR_UPLOAD_SECRET": "upload-secret",
		"FR_S3_ENDPOINT":   "minio.local:9000",
		"FR_S3_ACCESS_KEY": "minio-access",
		"FR_S3_SECRET_KEY": "minio-secret",
		"FR_SMTP_HOST":     "smtp.example.com",
		"FR_MAIL_FROM":     "registry@example.com",
		"FR_MAIL_TO":       "admin@example.com",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8040 {
		t.Errorf("Port: ожидалось 8040, получено %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Errorf("HTTPReadTimeout: ожидалось 30s, получено %v", cfg.HTTPReadTimeout)
	}
	if cfg.HTTPWriteTimeout != 60*time.Second {
		t.Errorf("HTTPWriteTimeout: ожидалось 60s, получено %v", cfg.HTTPWriteTimeout)
	}
	if cfg.HTTPIdleTimeout != 120*time.Second {
		t.Errorf("HTTPIdleTimeout: ожидалось 120s, получено %v", cfg.HTTPIdleTimeout)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost: ожидалось 'localhost', получено %q", cfg.DBHost)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort: ожидалось 5432, получено %d", cfg.DBPort)
	}
	if cfg.DBName != "fileregistry" {
		t.Errorf("DBName: ожидалось 'fileregistry', получено %q", cfg.DBName)
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode: ожидалось 'disable', получено %q", cfg.DBSSLMode)
	}
	if cfg.S3Bucket != "file-registry" {
		t.Errorf("S3Bucket: ожидалось 'file-registry', получено %q", cfg.S3Bucket)
	}
	if cfg.S3UseSSL {
		t.Error("S3UseSSL: ожидалось false")
	}
	if cfg.PresignTTL != 15*time.Minute {
		t.Errorf("PresignTTL: ожидалось 15m, получено %v", cfg.PresignTTL)
	}
	if cfg.URLCacheSize != 1024 {
		t.Errorf("URLCacheSize: ожидалось 1024, получено %d", cfg.URLCacheSize)
	}
	if cfg.URLCacheTTL != 5*time.Minute {
		t.Errorf("URLCacheTTL: ожидалось 5m, получено %v", cfg.URLCacheTTL)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort: ожидалось 587, получено %d", cfg.SMTPPort)
	}
	if cfg.DephealthGroup != "file-registry" {
		t.Errorf("DephealthGroup: ожидалось 'file-registry', получено %q", cfg.DephealthGroup)
	}
	if cfg.DephealthCheckInterval != 30*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 30s, получено %v", cfg.DephealthCheckInterval)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	delete(vars, "FR_UPLOAD_SECRET")

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Fatal("ожидалась ошибка при отсутствии FR_UPLOAD_SECRET")
	}
	if !strings.Contains(err.Error(), "FR_UPLOAD_SECRET") {
		t.Errorf("ошибка %q не указывает на FR_UPLOAD_SECRET", err)
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_LOG_FORMAT"] = "xml"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка при FR_LOG_FORMAT=xml")
	}
}

func TestLoad_CacheTTLExceedsPresignTTL(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_PRESIGN_TTL"] = "1m"
	vars["FR_URL_CACHE_TTL"] = "5m"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	if _, err := Load(); err == nil {
		t.Fatal("ожидалась ошибка: TTL кэша больше срока жизни подписи")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	cleanup := clearAllFREnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["FR_PORT"] = "8045"
	vars["FR_LOG_LEVEL"] = "debug"
	vars["FR_LOG_FORMAT"] = "text"
	vars["FR_S3_USE_SSL"] = "true"
	vars["FR_PRESIGN_TTL"] = "1h"
	vars["FR_URL_CACHE_TTL"] = "10m"
	vars["FR_SMTP_PORT"] = "465"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 8045 {
		t.Errorf("Port: ожидалось 8045, получено %d", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось 'text', получено %q", cfg.LogFormat)
	}
	if !cfg.S3UseSSL {
		t.Error("S3UseSSL: ожидалось true")
	}
	if cfg.PresignTTL != time.Hour {
		t.Errorf("PresignTTL: ожидалось 1h, получено %v", cfg.PresignTTL)
	}
	if cfg.SMTPPort != 465 {
		t.Errorf("SMTPPort: ожидалось 465, получено %d", cfg.SMTPPort)
	}
}
