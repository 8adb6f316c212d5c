// access.go — обработчики заявок на доступ к private-файлам.
// POST /api/v1/files/{file_id}/request — создание заявки (публичный endpoint),
// GET /api/v1/files/{file_id}/requests — audit-листинг (за общим секретом).
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gofileregistry/internal/api/errors"
	"github.com/bigkaa/gofileregistry/internal/service"
)

// accessRequestBody — тело POST /api/v1/files/{file_id}/request.
type accessRequestBody struct {
	Requester string `json:"requester"`
	Reason    string `json:"reason,omitempty"`
}

// accessRequestCreated — ответ на создание заявки.
// Notified=false означает: заявка сохранена, но уведомление администратору
// не ушло. Повторять запрос не нужно — заявка уже в audit-журнале.
type accessRequestCreated struct {
	Request  accessRequestResponse `json:"request"`
	Notified bool                  `json:"notified"`
}

// handleRequestAccess — реализация POST /api/v1/files/{file_id}/request.
// Заявка пишется до отправки уведомления: сбой почты не теряет audit-запись
// и не считается ошибкой клиента — ответ 201 с notified=false.
func (h *APIHandler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromURL(w, r)
	if !ok {
		return
	}

	var body accessRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	req, err := h.registry.RequestAccess(r.Context(), fileID, body.Requester, body.Reason)
	if err != nil && !errors.Is(err, service.ErrNotification) {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Файл не найден")
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		default:
			h.logger.Error("Ошибка создания заявки на доступ",
				slog.Int64("file_id", fileID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при создании заявки")
		}
		return
	}

	writeJSON(w, http.StatusCreated, accessRequestCreated{
		Request:  requestToResponse(req),
		Notified: err == nil,
	})
}

// handleListRequests — реализация GET /api/v1/files/{file_id}/requests.
// Авторизация: RequireSecret — на уровне middleware.
// Существование файла не проверяется: audit-записи переживают удаление файла.
func (h *APIHandler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromURL(w, r)
	if !ok {
		return
	}

	requests, err := h.registry.ListRequests(r.Context(), fileID)
	if err != nil {
		h.logger.Error("Ошибка листинга заявок",
			slog.Int64("file_id", fileID),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении заявок")
		return
	}

	items := make([]accessRequestResponse, 0, len(requests))
	for _, req := range requests {
		items = append(items, requestToResponse(req))
	}

	writeJSON(w, http.StatusOK, struct {
		Items []accessRequestResponse `json:"items"`
		Total int                     `json:"total"`
	}{
		Items: items,
		Total: len(items),
	})
}
