package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/gofileregistry/internal/domain/model"
)

// requestColumns — список столбцов таблицы access_requests для SELECT-запросов.
const requestColumns = `id, file_id, requester, reason, requested_at`

// AccessRequestRepository — интерфейс доступа к заявкам в access_requests.
// Заявки — чистый audit log: только вставка и чтение, без UPDATE/DELETE.
type AccessRequestRepository interface {
	// Insert создаёт заявку на доступ. Заполняет ID и RequestedAt из БД.
	Insert(ctx context.Context, req *model.AccessRequest) error
	// ListByFile возвращает заявки по файлу, новые первыми.
	ListByFile(ctx context.Context, fileID int64) ([]*model.AccessRequest, error)
}

// accessRequestRepo — реализация AccessRequestRepository через pgx.
type accessRequestRepo struct {
	db DBTX
}

// NewAccessRequestRepository создаёт репозиторий заявок на доступ.
func NewAccessRequestRepository(db DBTX) AccessRequestRepository {
	return &accessRequestRepo{db: db}
}

// Insert создаёт запись заявки.
// ID и RequestedAt назначаются базой данных (BIGSERIAL, DEFAULT now()).
func (r *accessRequestRepo) Insert(ctx context.Context, req *model.AccessRequest) error {
	query := `
		INSERT INTO access_requests (file_id, requester, reason)
		VALUES ($1, $2, $3)
		RETURNING id, requested_at`

	err := r.db.QueryRow(ctx, query, req.FileID, req.Requester, req.Reason).
		Scan(&req.ID, &req.RequestedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания заявки на доступ: %w", err)
	}
	return nil
}

// ListByFile возвращает заявки по файлу, отсортированные по requested_at DESC.
func (r *accessRequestRepo) ListByFile(ctx context.Context, fileID int64) ([]*model.AccessRequest, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM access_requests WHERE file_id = $1 ORDER BY requested_at DESC`,
		requestColumns,
	)

	rows, err := r.db.Query(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заявок: %w", err)
	}
	defer rows.Close()

	return scanRequests(rows)
}

// scanRequests сканирует строки результата в срез AccessRequest.
func scanRequests(rows pgx.Rows) ([]*model.AccessRequest, error) {
	var result []*model.AccessRequest
	for rows.Next() {
		req := &model.AccessRequest{}
		if err := rows.Scan(
			&req.ID, &req.FileID, &req.Requester, &req.Reason, &req.RequestedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}
