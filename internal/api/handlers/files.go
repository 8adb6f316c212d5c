// files.go — HTTP handlers файловых операций File Registry.
// Upload (multipart), List public, Download (redirect), Delete.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/gofileregistry/internal/api/errors"
	"github.com/bigkaa/gofileregistry/internal/api/middleware"
	"github.com/bigkaa/gofileregistry/internal/service"
)

// maxMultipartMemory — буфер парсинга multipart form в памяти,
// остальное уходит во временные файлы.
const maxMultipartMemory = 32 << 20 // 32 MB

// handleUpload — POST /api/v1/files.
// Multipart form: file (обязательно), title (обязательно), visibility
// (обязательно), description и tags (опционально, tags — через запятую).
// Секрет загрузки — в заголовке X-Upload-Secret, проверяется сервисом.
func (h *APIHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierrors.ValidationError(w, "Ошибка парсинга multipart: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	// Секрет: заголовок X-Upload-Secret, fallback — form-поле secret
	secret := r.Header.Get(middleware.SecretHeader)
	if secret == "" {
		secret = r.FormValue("secret")
	}

	record, err := h.registry.Upload(r.Context(), service.UploadInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        splitTags(r.FormValue("tags")),
		Visibility:  r.FormValue("visibility"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
		Secret:      secret,
	})
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fileToResponse(record))
}

// writeUploadError маппит ошибки сервиса загрузки в HTTP-ответы.
func (h *APIHandler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, "Неверный или отсутствующий "+middleware.SecretHeader)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrStorage):
		apierrors.StorageFailure(w, "Объектное хранилище недоступно, файл не сохранён")
	case errors.Is(err, service.ErrPartialFailure):
		apierrors.PartialFailure(w, "Загрузка завершилась частично, требуется вмешательство оператора")
	default:
		h.logger.Error("Ошибка загрузки файла", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при загрузке файла")
	}
}

// handleListPublic — GET /api/v1/files.
// Возвращает только public-записи, новые первыми.
func (h *APIHandler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.ListPublic(r.Context())
	if err != nil {
		h.logger.Error("Ошибка списка public-файлов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при получении списка файлов")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Items []fileResponse `json:"items"`
		Total int            `json:"total"`
	}{
		Items: filesToResponse(records),
		Total: len(records),
	})
}

// handleDownload — GET /api/v1/files/{file_id}/download.
// Public-файл: 302 на подписанную ссылку Blob Store.
// Private-файл: всегда 403 — доступ только через заявку.
func (h *APIHandler) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromURL(w, r)
	if !ok {
		return
	}

	url, err := h.registry.Download(r.Context(), fileID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Файл не найден")
		case errors.Is(err, service.ErrPrivateFile):
			apierrors.Forbidden(w, "Файл private: доступ только по заявке")
		case errors.Is(err, service.ErrStorage):
			apierrors.StorageFailure(w, "Объектное хранилище недоступно")
		default:
			h.logger.Error("Ошибка скачивания файла",
				slog.Int64("file_id", fileID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при скачивании файла")
		}
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// handleDelete — DELETE /api/v1/files/{file_id}.
// Авторизация: RequireSecret — на уровне middleware.
// Сначала blob, затем запись метаданных (fail-closed).
func (h *APIHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	fileID, ok := fileIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.registry.Delete(r.Context(), fileID); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Файл не найден")
		case errors.Is(err, service.ErrStorage):
			apierrors.StorageFailure(w, "Объектное хранилище недоступно, файл не удалён")
		case errors.Is(err, service.ErrPartialFailure):
			apierrors.PartialFailure(w, "Blob удалён, но запись метаданных осталась")
		default:
			h.logger.Error("Ошибка удаления файла",
				slog.Int64("file_id", fileID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при удалении файла")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// splitTags разбирает список тегов из form value (через запятую).
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
