package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/gofileregistry/internal/config"
	"github.com/bigkaa/gofileregistry/internal/database"
	"github.com/bigkaa/gofileregistry/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; контейнер останавливается через t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("fileregistry_test"),
		postgres.WithUsername("fileregistry"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	cfg := &config.Config{
		DBHost:     host,
		DBPort:     port.Int(),
		DBName:     "fileregistry_test",
		DBUser:     "fileregistry",
		DBPassword: "test-password",
		DBSSLMode:  "disable",
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка применения миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения к PostgreSQL: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// insertTestFile вставляет файл и возвращает запись.
func insertTestFile(t *testing.T, repo FileRepository, title, key, visibility string, tags []string) *model.FileRecord {
	t.Helper()

	f := &model.FileRecord{
		Title:       title,
		StorageKey:  key,
		ContentType: "text/plain",
		Size:        42,
		Tags:        tags,
		Visibility:  visibility,
	}
	if err := repo.Insert(context.Background(), f); err != nil {
		t.Fatalf("Insert(%q) ошибка: %v", title, err)
	}
	return f
}

// TestIntegration_FileLifecycle проверяет полный жизненный цикл записи
// файла на живой базе: вставка, чтение, листинг, поиск, удаление.
func TestIntegration_FileLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewFileRepository(pool)
	ctx := context.Background()

	pub := insertTestFile(t, repo, "Public report", "public/1_report.txt", "public", []string{"report", "2026"})
	priv := insertTestFile(t, repo, "Private notes", "private/2_notes.txt", "private", []string{"notes"})

	if pub.ID == 0 || priv.ID == 0 || pub.ID == priv.ID {
		t.Fatalf("идентификаторы не назначены монотонно: pub=%d priv=%d", pub.ID, priv.ID)
	}

	// GetByID возвращает полную запись
	got, err := repo.GetByID(ctx, priv.ID)
	if err != nil {
		t.Fatalf("GetByID ошибка: %v", err)
	}
	if got.Visibility != "private" || got.StorageKey != "private/2_notes.txt" {
		t.Errorf("запись = %+v, ожидалась private с исходным ключом", got)
	}

	// ListPublic не содержит private-записей
	public, err := repo.ListPublic(ctx)
	if err != nil {
		t.Fatalf("ListPublic ошибка: %v", err)
	}
	for _, f := range public {
		if f.Visibility != "public" {
			t.Errorf("в листинге public оказалась запись %d с visibility=%q", f.ID, f.Visibility)
		}
	}

	// Поиск: регистронезависимая подстрока по title и тегам
	byTitle, err := repo.Search(ctx, "REPORT")
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != pub.ID {
		t.Errorf("Search(REPORT) = %v, ожидалась одна запись %d", byTitle, pub.ID)
	}

	byTag, err := repo.Search(ctx, "note")
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if len(byTag) != 1 || byTag[0].ID != priv.ID {
		t.Errorf("Search(note) = %v, ожидалась одна запись %d", byTag, priv.ID)
	}

	// Пустой запрос возвращает всю таблицу
	all, err := repo.Search(ctx, "")
	if err != nil {
		t.Fatalf("Search ошибка: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Search('') вернул %d записей, ожидалось 2", len(all))
	}

	// Удаление: запись исчезает из чтения и поиска
	if err := repo.Delete(ctx, pub.ID); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, pub.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID после Delete = %v, ожидалась ErrNotFound", err)
	}
	if err := repo.Delete(ctx, pub.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete = %v, ожидалась ErrNotFound", err)
	}
}

// TestIntegration_UniqueStorageKey проверяет UNIQUE-ограничение на storage_key.
func TestIntegration_UniqueStorageKey(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewFileRepository(pool)

	insertTestFile(t, repo, "First", "public/dup.txt", "public", nil)

	f := &model.FileRecord{
		Title:       "Second",
		StorageKey:  "public/dup.txt",
		ContentType: "text/plain",
		Visibility:  "public",
	}
	if err := repo.Insert(context.Background(), f); !errors.Is(err, ErrConflict) {
		t.Fatalf("ошибка = %v, ожидалась ErrConflict", err)
	}
}

// TestIntegration_AccessRequestAudit проверяет, что заявки — чистый audit log:
// записи создаются, читаются и переживают удаление файла.
func TestIntegration_AccessRequestAudit(t *testing.T) {
	pool := setupTestDB(t)
	fileRepo := NewFileRepository(pool)
	reqRepo := NewAccessRequestRepository(pool)
	ctx := context.Background()

	priv := insertTestFile(t, fileRepo, "Private", "private/3_p.txt", "private", nil)

	reason := "аудит"
	req := &model.AccessRequest{FileID: priv.ID, Requester: "ivanov", Reason: &reason}
	if err := reqRepo.Insert(ctx, req); err != nil {
		t.Fatalf("Insert заявки ошибка: %v", err)
	}
	if req.ID == 0 || req.RequestedAt.IsZero() {
		t.Errorf("заявка без ID/RequestedAt: %+v", req)
	}

	// Заявка переживает удаление файла (FK отсутствует намеренно)
	if err := fileRepo.Delete(ctx, priv.ID); err != nil {
		t.Fatalf("Delete файла ошибка: %v", err)
	}
	requests, err := reqRepo.ListByFile(ctx, priv.ID)
	if err != nil {
		t.Fatalf("ListByFile ошибка: %v", err)
	}
	if len(requests) != 1 || requests[0].Requester != "ivanov" {
		t.Errorf("заявки после удаления файла = %v, ожидалась одна от ivanov", requests)
	}
}
