// registry.go — центральный сервис реестра файлов.
// Координирует Blob Store, PostgreSQL-репозитории и нотификатор,
// обеспечивая границу доступа public/private на каждом read path.
//
// Последовательности записи:
//   - upload: сначала blob, затем строка метаданных (сбой blob'а — без записи);
//   - delete: сначала blob, затем строка (fail-closed: при сбое blob'а строка
//     остаётся, повторная попытка возможна).
//
// Блокировки через границы внешних вызовов не удерживаются; операции над
// разными файлами полностью конкурентны. Гонки над одним id (delete против
// download) исключительности не имеют — документированный пробел дизайна.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/gofileregistry/internal/domain/model"
	"github.com/bigkaa/gofileregistry/internal/repository"
)

// BlobStore — контракт внешнего объектного хранилища.
type BlobStore interface {
	// Put записывает объект под указанным ключом.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Remove удаляет объект по ключу.
	Remove(ctx context.Context, key string) error
	// PresignedGetURL возвращает временную подписанную ссылку на скачивание.
	PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Notifier — контракт внешней доставки уведомлений.
type Notifier interface {
	// Send отправляет уведомление администратору.
	Send(ctx context.Context, subject, body string) error
}

// Prometheus-метрики use case'ов реестра.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fr_uploads_total",
		Help: "Общее количество загрузок файлов (по статусу).",
	}, []string{"status"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fr_downloads_total",
		Help: "Общее количество запросов на скачивание (по статусу).",
	}, []string{"status"})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fr_deletes_total",
		Help: "Общее количество удалений файлов (по статусу).",
	}, []string{"status"})

	accessRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fr_access_requests_total",
		Help: "Общее количество заявок на доступ (по статусу).",
	}, []string{"status"})

	notifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fr_notify_failures_total",
		Help: "Количество сбоев отправки уведомлений при сохранённой заявке.",
	})

	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fr_search_total",
		Help: "Общее количество поисковых запросов.",
	})

	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fr_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
)

// UploadInput — вход use case'а загрузки файла.
// Transport Shell передаёт уже распарсенный, типизированный вход.
type UploadInput struct {
	// Title — отображаемое имя, непустое.
	Title string
	// Description — описание (опционально, пустая строка — отсутствует).
	Description string
	// Tags — теги для поиска.
	Tags []string
	// Visibility — public или private.
	Visibility string
	// Filename — оригинальное имя файла, участвует в ключе хранения.
	Filename string
	// ContentType — MIME-тип содержимого.
	ContentType string
	// Size — размер содержимого в байтах.
	Size int64
	// Content — поток байтов файла.
	Content io.Reader
	// Secret — предъявленный секрет загрузки.
	Secret string
}

// RegistryService — центральный сервис реестра файлов.
type RegistryService struct {
	fileRepo    repository.FileRepository
	requestRepo repository.AccessRequestRepository
	blobs       BlobStore
	notifier    Notifier
	urlCache    *URLCache
	secret      []byte
	presignTTL  time.Duration
	logger      *slog.Logger
}

// NewRegistryService создаёт сервис реестра.
// secret — общий секрет загрузки, presignTTL — срок жизни подписанных ссылок.
func NewRegistryService(
	fileRepo repository.FileRepository,
	requestRepo repository.AccessRequestRepository,
	blobs BlobStore,
	notifier Notifier,
	urlCache *URLCache,
	secret string,
	presignTTL time.Duration,
	logger *slog.Logger,
) *RegistryService {
	return &RegistryService{
		fileRepo:    fileRepo,
		requestRepo: requestRepo,
		blobs:       blobs,
		notifier:    notifier,
		urlCache:    urlCache,
		secret:      []byte(secret),
		presignTTL:  presignTTL,
		logger:      logger.With(slog.String("component", "registry_service")),
	}
}

// Upload загружает файл: сначала байты в Blob Store, затем строка метаданных.
// При сбое Blob Store метаданные не пишутся (частичное состояние исключено).
// При сбое вставки метаданных уже записанный blob удаляется best-effort;
// если и это не удалось — ErrPartialFailure с ключом в логе для оператора.
func (s *RegistryService) Upload(ctx context.Context, in UploadInput) (*model.FileRecord, error) {
	// Секрет проверяется до любых внешних вызовов, сравнение за константное время.
	if subtle.ConstantTimeCompare([]byte(in.Secret), s.secret) != 1 {
		uploadsTotal.WithLabelValues("unauthorized").Inc()
		return nil, ErrUnauthorized
	}

	if strings.TrimSpace(in.Title) == "" {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: title не может быть пустым", ErrValidation)
	}
	if !model.ValidVisibility(in.Visibility) {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: visibility %q, допустимые: public, private", ErrValidation, in.Visibility)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := storageKey(in.Visibility, in.Filename)

	// 1. Байты в Blob Store
	if err := s.blobs.Put(ctx, key, in.Content, in.Size, contentType); err != nil {
		uploadsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	// 2. Строка метаданных
	record := &model.FileRecord{
		Title:       strings.TrimSpace(in.Title),
		StorageKey:  key,
		ContentType: contentType,
		Size:        in.Size,
		Tags:        normalizeTags(in.Tags),
		Visibility:  in.Visibility,
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		record.Description = &desc
	}

	if err := s.fileRepo.Insert(ctx, record); err != nil {
		uploadsTotal.WithLabelValues("db_error").Inc()

		// Blob уже записан — убираем, чтобы не оставить сироту
		if rmErr := s.blobs.Remove(ctx, key); rmErr != nil {
			s.logger.Error("Осиротевший blob после сбоя вставки метаданных",
				slog.String("key", key),
				slog.String("insert_error", err.Error()),
				slog.String("remove_error", rmErr.Error()),
			)
			return nil, fmt.Errorf("%w: blob %q остался без записи метаданных", ErrPartialFailure, key)
		}
		return nil, fmt.Errorf("вставка записи файла: %w", err)
	}

	uploadsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Файл загружен",
		slog.Int64("file_id", record.ID),
		slog.String("title", record.Title),
		slog.String("visibility", record.Visibility),
		slog.Int64("size", record.Size),
	)

	return record, nil
}

// ListPublic возвращает public-файлы, новые первыми.
// Private-записи не попадают в выдачу на уровне SQL.
func (s *RegistryService) ListPublic(ctx context.Context) ([]*model.FileRecord, error) {
	records, err := s.fileRepo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("список public-файлов: %w", err)
	}
	return records, nil
}

// Search выполняет регистронезависимый поиск подстроки по title и тегам.
// Пустой запрос возвращает всю таблицу (документированное поведение).
//
// Выдача включает метаданные private-файлов (title, description, теги),
// но их локатор маскируется: получить StorageKey private-файла через
// поиск невозможно — критический шов контроля доступа.
func (s *RegistryService) Search(ctx context.Context, query string) ([]*model.FileRecord, error) {
	start := time.Now()
	searchTotal.Inc()

	records, err := s.fileRepo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("поиск файлов: %w", err)
	}

	// Маскируем локаторы private-записей (копия, оригинал не трогаем)
	result := make([]*model.FileRecord, 0, len(records))
	for _, rec := range records {
		if rec.Visibility == model.VisibilityPrivate {
			masked := *rec
			masked.StorageKey = ""
			result = append(result, &masked)
			continue
		}
		result = append(result, rec)
	}

	searchDuration.Observe(time.Since(start).Seconds())
	return result, nil
}

// RequestAccess создаёт заявку на доступ к private-файлу и уведомляет
// администратора по email.
//
// Заявка сохраняется до отправки уведомления: сбой нотификатора не теряет
// audit-запись. В этом случае возвращаются и созданная заявка, и ошибка,
// оборачивающая ErrNotification — вызывающий решает, как отразить
// неотправленное уведомление, но не должен повторять вставку.
func (s *RegistryService) RequestAccess(ctx context.Context, fileID int64, requester, reason string) (*model.AccessRequest, error) {
	if strings.TrimSpace(requester) == "" {
		accessRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: requester не может быть пустым", ErrValidation)
	}

	record, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			accessRequestsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		accessRequestsTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("получение записи файла: %w", err)
	}
	// Public-файл для этой операции неотличим от отсутствующего:
	// заявки существуют только для private-записей.
	if record.Visibility != model.VisibilityPrivate {
		accessRequestsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	req := &model.AccessRequest{
		FileID:    fileID,
		Requester: strings.TrimSpace(requester),
	}
	if r := strings.TrimSpace(reason); r != "" {
		req.Reason = &r
	}

	// 1. Audit-запись — до уведомления
	if err := s.requestRepo.Insert(ctx, req); err != nil {
		accessRequestsTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("сохранение заявки: %w", err)
	}

	// 2. Уведомление администратора
	subject := fmt.Sprintf("File Registry: запрос доступа к файлу %q (id %d)", record.Title, record.ID)
	body := fmt.Sprintf(
		"Пользователь %s запросил доступ к private-файлу.\n\nФайл: %s (id %d)\nПричина: %s\n",
		req.Requester, record.Title, record.ID, valueOr(req.Reason, "не указана"),
	)

	if err := s.notifier.Send(ctx, subject, body); err != nil {
		notifyFailuresTotal.Inc()
		accessRequestsTotal.WithLabelValues("notify_error").Inc()
		s.logger.Warn("Заявка сохранена, но уведомление не отправлено",
			slog.Int64("request_id", req.ID),
			slog.Int64("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return req, fmt.Errorf("%w: %w", ErrNotification, err)
	}

	accessRequestsTotal.WithLabelValues("success").Inc()
	s.logger.Info("Заявка на доступ создана",
		slog.Int64("request_id", req.ID),
		slog.Int64("file_id", fileID),
		slog.String("requester", req.Requester),
	)

	return req, nil
}

// ListRequests возвращает audit-заявки по файлу, новые первыми.
// Существование файла не проверяется: записи аудита переживают удаление файла.
func (s *RegistryService) ListRequests(ctx context.Context, fileID int64) ([]*model.AccessRequest, error) {
	requests, err := s.requestRepo.ListByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("список заявок: %w", err)
	}
	return requests, nil
}

// Download возвращает подписанную ссылку на скачивание public-файла.
//
// Private-файлы через этот путь недоступны ни при каких условиях —
// доступ только через заявку и внешнее одобрение (ErrPrivateFile).
// Видимость проверяется по столбцу записи, а не по префиксу ключа хранения.
// Метаданные перечитываются на каждый вызов; кэшируется только
// производная подписанная ссылка.
func (s *RegistryService) Download(ctx context.Context, fileID int64) (string, error) {
	record, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
			return "", ErrNotFound
		}
		downloadsTotal.WithLabelValues("db_error").Inc()
		return "", fmt.Errorf("получение записи файла: %w", err)
	}

	if record.Visibility != model.VisibilityPublic {
		downloadsTotal.WithLabelValues("forbidden").Inc()
		return "", ErrPrivateFile
	}

	if url, ok := s.urlCache.Get(fileID); ok {
		downloadsTotal.WithLabelValues("success").Inc()
		return url, nil
	}

	url, err := s.blobs.PresignedGetURL(ctx, record.StorageKey, s.presignTTL)
	if err != nil {
		downloadsTotal.WithLabelValues("storage_error").Inc()
		return "", fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.urlCache.Set(fileID, url)

	downloadsTotal.WithLabelValues("success").Inc()
	return url, nil
}

// Delete удаляет файл: сначала blob, затем строка метаданных.
//
// Fail-closed: при сбое удаления blob'а строка остаётся нетронутой —
// метаданные никогда не удаляются, пока байты существуют (повтор возможен).
// Сбой вторичного удаления строки оставляет висящую запись при удалённых
// байтах — ErrPartialFailure, обнаруживается последующим download.
// Двухфазность намеренно неатомарна: общего координатора транзакций
// между Blob Store и PostgreSQL нет.
func (s *RegistryService) Delete(ctx context.Context, fileID int64) error {
	record, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			deletesTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		deletesTotal.WithLabelValues("db_error").Inc()
		return fmt.Errorf("получение записи файла: %w", err)
	}

	// 1. Blob — первым
	if err := s.blobs.Remove(ctx, record.StorageKey); err != nil {
		deletesTotal.WithLabelValues("storage_error").Inc()
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}

	// 2. Строка метаданных
	if err := s.fileRepo.Delete(ctx, fileID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		deletesTotal.WithLabelValues("partial_failure").Inc()
		s.logger.Error("Blob удалён, но запись метаданных осталась",
			slog.Int64("file_id", fileID),
			slog.String("key", record.StorageKey),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: запись %d осталась после удаления blob'а", ErrPartialFailure, fileID)
	}

	s.urlCache.Delete(fileID)

	deletesTotal.WithLabelValues("success").Inc()
	s.logger.Info("Файл удалён",
		slog.Int64("file_id", fileID),
		slog.String("key", record.StorageKey),
	)
	return nil
}

// storageKey строит ключ хранения файла.
//
// Схема (документирована, тихая перезапись исключена):
//
//	{visibility}/{unix-millis}_{uuid-8}_{sanitized-filename}
//
// Временная метка и случайный префикс UUID гарантируют практическую
// уникальность на каждую загрузку; UNIQUE-ограничение на storage_key
// страхует на уровне БД.
func storageKey(visibility, filename string) string {
	return fmt.Sprintf("%s/%d_%s_%s",
		visibility,
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		sanitizeFilename(filename),
	)
}

// sanitizeFilename оставляет от имени файла безопасное подмножество символов.
// Пустое имя заменяется на "file".
func sanitizeFilename(name string) string {
	// Отбрасываем компоненты пути
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)

	if sanitized == "" || strings.Trim(sanitized, "._") == "" {
		return "file"
	}
	return sanitized
}

// normalizeTags отбрасывает пустые теги и обрезает пробелы, сохраняя порядок.
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

// valueOr возвращает значение указателя или запасную строку.
func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
