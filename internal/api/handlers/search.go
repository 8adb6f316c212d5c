// search.go — обработчик GET /api/v1/search.
// Регистронезависимый поиск подстроки по title и тегам.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/gofileregistry/internal/api/errors"
)

// handleSearch — реализация GET /api/v1/search?q=...
// Пустой q возвращает всю таблицу (документированное поведение).
// У private-записей в выдаче замаскирован storage_key.
func (h *APIHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	records, err := h.registry.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("Ошибка поиска файлов",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при поиске файлов")
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
