package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/bigkaa/gofileregistry/internal/domain/model"
)

// TestAccessRequestRepo_Insert проверяет INSERT заявки и заполнение
// ID/RequestedAt из БД.
func TestAccessRequestRepo_Insert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccessRequestRepository(mock)

	now := time.Now().UTC()
	reason := "нужен для аудита"
	mock.ExpectQuery(`INSERT INTO access_requests`).
		WithArgs(int64(42), "ivanov", &reason).
		WillReturnRows(pgxmock.NewRows([]string{"id", "requested_at"}).AddRow(int64(3), now))

	req := &model.AccessRequest{
		FileID:    42,
		Requester: "ivanov",
		Reason:    &reason,
	}
	if err := repo.Insert(context.Background(), req); err != nil {
		t.Fatalf("Insert ошибка: %v", err)
	}
	if req.ID != 3 {
		t.Errorf("ID = %d, ожидался 3", req.ID)
	}
	if !req.RequestedAt.Equal(now) {
		t.Errorf("RequestedAt = %v, ожидался %v", req.RequestedAt, now)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("невыполненные ожидания: %v", err)
	}
}

// TestAccessRequestRepo_ListByFile проверяет выборку заявок по файлу.
func TestAccessRequestRepo_ListByFile(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAccessRequestRepository(mock)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM access_requests WHERE file_id`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "file_id", "requester", "reason", "requested_at"}).
			AddRow(int64(2), int64(42), "petrov", nil, now).
			AddRow(int64(1), int64(42), "ivanov", nil, now.Add(-time.Hour)),
		)

	requests, err := repo.ListByFile(context.Background(), 42)
	if err != nil {
		t.Fatalf("ListByFile ошибка: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("заявок %d, ожидалось 2", len(requests))
	}
	if requests[0].Requester != "petrov" {
		t.Errorf("первая заявка = %q, ожидалась petrov (новые первыми)", requests[0].Requester)
	}
	if requests[0].Reason != nil {
		t.Errorf("Reason = %v, ожидался nil", requests[0].Reason)
	}
}
