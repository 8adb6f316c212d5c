// handler.go — основной обработчик API File Registry.
// Объединяет health и бизнес-обработчики, регистрирует маршруты chi.
// Transport Shell: парсинг запросов и сериализация ответов, вся
// бизнес-логика — в сервисном слое.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/gofileregistry/internal/api/errors"
	"github.com/bigkaa/gofileregistry/internal/domain/model"
	"github.com/bigkaa/gofileregistry/internal/service"
)

// APIHandler — основной обработчик API File Registry.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	registry *service.RegistryService
	health   *HealthHandler
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	registry *service.RegistryService,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		registry: registry,
		health:   health,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// RegisterRoutes регистрирует все маршруты API на переданном роутере.
// adminGuard — middleware общего секрета для административных операций
// (удаление, просмотр audit-заявок). Загрузка секретом не оборачивается:
// секрет проверяет сервис, чтобы multipart-поток не читался до проверки.
func (h *APIHandler) RegisterRoutes(r chi.Router, adminGuard func(http.Handler) http.Handler) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", h.handleSearch)

		r.Route("/files", func(r chi.Router) {
			r.Post("/", h.handleUpload)
			r.Get("/", h.handleListPublic)

			r.Route("/{file_id}", func(r chi.Router) {
				r.Get("/download", h.handleDownload)
				r.Post("/request", h.handleRequestAccess)

				r.With(adminGuard).Delete("/", h.handleDelete)
				r.With(adminGuard).Get("/requests", h.handleListRequests)
			})
		})
	})
}

// --- API-типы ответов ---

// fileResponse — представление записи файла в API.
// StorageKey сериализуется только когда он известен вызывающему
// (у private-записей в поиске он замаскирован).
type fileResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	StorageKey  string   `json:"storage_key,omitempty"`
	ContentType string   `json:"content_type"`
	Size        int64    `json:"size"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
	UploadedAt  string   `json:"uploaded_at"`
}

// accessRequestResponse — представление заявки на доступ в API.
type accessRequestResponse struct {
	ID          int64   `json:"id"`
	FileID      int64   `json:"file_id"`
	Requester   string  `json:"requester"`
	Reason      *string `json:"reason,omitempty"`
	RequestedAt string  `json:"requested_at"`
}

// fileToResponse конвертирует domain-запись в API-тип.
func fileToResponse(r *model.FileRecord) fileResponse {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return fileResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		StorageKey:  r.StorageKey,
		ContentType: r.ContentType,
		Size:        r.Size,
		Tags:        tags,
		Visibility:  r.Visibility,
		UploadedAt:  r.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// filesToResponse конвертирует срез domain-записей в API-типы.
func filesToResponse(records []*model.FileRecord) []fileResponse {
	items := make([]fileResponse, 0, len(records))
	for _, r := range records {
		items = append(items, fileToResponse(r))
	}
	return items
}

// requestToResponse конвертирует domain-заявку в API-тип.
func requestToResponse(r *model.AccessRequest) accessRequestResponse {
	return accessRequestResponse{
		ID:          r.ID,
		FileID:      r.FileID,
		Requester:   r.Requester,
		Reason:      r.Reason,
		RequestedAt: r.RequestedAt.UTC().Format(time.RFC3339),
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// fileIDFromURL извлекает числовой file_id из URL. При некорректном
// значении пишет 400 и возвращает false.
func fileIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "file_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		apierrors.ValidationError(w, "file_id должен быть положительным целым числом")
		return 0, false
	}
	return id, true
}
