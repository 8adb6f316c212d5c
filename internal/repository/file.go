package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/gofileregistry/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const fileColumns = `id, title, description, storage_key, content_type, size, tags, visibility, uploaded_at`

// FileRepository — интерфейс доступа к записям файлов в таблице files.
type FileRepository interface {
	// Insert создаёт запись файла. Заполняет ID и UploadedAt из БД.
	Insert(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает файл по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.FileRecord, error)
	// ListPublic возвращает все public-файлы, новые первыми.
	ListPublic(ctx context.Context) ([]*model.FileRecord, error)
	// Search выполняет регистронезависимый поиск подстроки по title и тегам.
	// Пустой запрос возвращает всю таблицу.
	Search(ctx context.Context, query string) ([]*model.FileRecord, error)
	// Delete удаляет запись файла по идентификатору.
	Delete(ctx context.Context, id int64) error
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Insert создаёт запись файла в реестре.
// ID и UploadedAt назначаются базой данных (BIGSERIAL, DEFAULT now()).
func (r *fileRepo) Insert(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (title, description, storage_key, content_type, size, tags, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, uploaded_at`

	err := r.db.QueryRow(ctx, query,
		f.Title, f.Description, f.StorageKey, f.ContentType, f.Size, f.Tags, f.Visibility,
	).Scan(&f.ID, &f.UploadedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким storage_key уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка регистрации файла: %w", err)
	}
	return nil
}

// GetByID возвращает файл по идентификатору или ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, id int64) (*model.FileRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1`, fileColumns)

	f := &model.FileRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.Title, &f.Description, &f.StorageKey, &f.ContentType,
		&f.Size, &f.Tags, &f.Visibility, &f.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// ListPublic возвращает public-файлы, отсортированные по uploaded_at DESC.
// Без пагинации — документированное ограничение дизайна.
func (r *fileRepo) ListPublic(ctx context.Context) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM files WHERE visibility = 'public' ORDER BY uploaded_at DESC`,
		fileColumns,
	)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка public-файлов: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// Search выполняет ILIKE-поиск подстроки по title или любому из тегов.
// Пустая строка запроса даёт шаблон '%%' — совпадает вся таблица
// (документированное поведение, не дефект).
// Видимость НЕ фильтруется: маскировка локаторов private-файлов —
// ответственность сервисного слоя.
func (r *fileRepo) Search(ctx context.Context, search string) ([]*model.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE title ILIKE $1
			OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $1)
		ORDER BY uploaded_at DESC`, fileColumns)

	rows, err := r.db.Query(ctx, query, "%"+search+"%")
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска файлов: %w", err)
	}
	defer rows.Close()

	return scanFiles(rows)
}

// Delete удаляет запись файла. Возвращает ErrNotFound, если записи нет.
func (r *fileRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanFiles сканирует строки результата в срез FileRecord.
func scanFiles(rows pgx.Rows) ([]*model.FileRecord, error) {
	var result []*model.FileRecord
	for rows.Next() {
		f := &model.FileRecord{}
		if err := rows.Scan(
			&f.ID, &f.Title, &f.Description, &f.StorageKey, &f.ContentType,
			&f.Size, &f.Tags, &f.Visibility, &f.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
