// Точка входа File Registry — сервис реестра файлов.
// Загружает конфигурацию, применяет миграции и подключается к PostgreSQL,
// инициализирует MinIO-клиент и SMTP-нотификатор, создаёт сервисный слой
// и API handlers, запускает мониторинг зависимостей (topologymetrics)
// и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/gofileregistry/internal/api/handlers"
	"github.com/bigkaa/gofileregistry/internal/api/middleware"
	"github.com/bigkaa/gofileregistry/internal/blobstore"
	"github.com/bigkaa/gofileregistry/internal/config"
	"github.com/bigkaa/gofileregistry/internal/database"
	"github.com/bigkaa/gofileregistry/internal/notifier"
	"github.com/bigkaa/gofileregistry/internal/repository"
	"github.com/bigkaa/gofileregistry/internal/server"
	"github.com/bigkaa/gofileregistry/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("File Registry запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	if os.Getenv("FR_DEPHEALTH_GROUP") == "" {
		logger.Warn("FR_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент объектного хранилища (MinIO)
	blobs, err := blobstore.New(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3UseSSL, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента MinIO", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("MinIO клиент создан",
		slog.String("endpoint", cfg.S3Endpoint),
		slog.String("bucket", cfg.S3Bucket),
	)

	// 6. SMTP-нотификатор
	mailer, err := notifier.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
		cfg.MailFrom, cfg.MailTo, logger)
	if err != nil {
		logger.Error("Ошибка создания SMTP-нотификатора", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Repositories
	fileRepo := repository.NewFileRepository(pool)
	requestRepo := repository.NewAccessRequestRepository(pool)

	// 8. Кэш подписанных ссылок
	urlCache := service.NewURLCache(cfg.URLCacheSize, cfg.URLCacheTTL)

	// 9. Сервис реестра
	registrySvc := service.NewRegistryService(
		fileRepo, requestRepo,
		blobs, mailer, urlCache,
		cfg.UploadSecret, cfg.PresignTTL,
		logger,
	)

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL + MinIO)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"file-registry",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		blobs.HealthURL(),
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Health handler (readiness — PostgreSQL)
	pgChecker := database.NewReadinessChecker(pool)
	healthHandler := handlers.NewHealthHandler(pgChecker)

	// 12. API handler
	apiHandler := handlers.NewAPIHandler(registrySvc, healthHandler, logger)

	// 13. HTTP-сервер: metrics и logging — глобально,
	// общий секрет — только на административных маршрутах.
	adminGuard := middleware.RequireSecret([]byte(cfg.UploadSecret))
	srv := server.New(cfg, logger, apiHandler, adminGuard,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 14. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("File Registry остановлен")
}
