// Пакет model — доменные модели File Registry.
// FileRecord — маппинг таблицы files, AccessRequest — таблицы access_requests.
package model

import "time"

// Видимость файла. Задаётся при загрузке и не меняется
// (endpoint переклассификации отсутствует намеренно).
const (
	// VisibilityPublic — файл доступен для листинга и прямого скачивания.
	VisibilityPublic = "public"
	// VisibilityPrivate — файл скрыт за процедурой запроса доступа.
	VisibilityPrivate = "private"
)

// ValidVisibility проверяет, что значение входит в допустимый enum.
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// FileRecord — запись файла в реестре files.
type FileRecord struct {
	// ID — монотонно возрастающий идентификатор (BIGSERIAL).
	ID int64
	// Title — отображаемое имя, непустое.
	Title string
	// Description — описание файла (опционально).
	Description *string
	// StorageKey — ключ объекта в Blob Store (локатор).
	// Для private-файлов никогда не отдаётся недоверенным вызывающим.
	StorageKey string
	// ContentType — MIME-тип файла.
	ContentType string
	// Size — размер файла в байтах.
	Size int64
	// Tags — теги файла для поиска.
	Tags []string
	// Visibility — public или private.
	Visibility string
	// UploadedAt — время загрузки, устанавливается один раз.
	UploadedAt time.Time
}

// AccessRequest — заявка на доступ к private-файлу.
// Чистый audit log: записи никогда не изменяются и не удаляются сервисом,
// одобрение/отказ — внешнее действие человека по email-уведомлению.
type AccessRequest struct {
	// ID — идентификатор заявки (BIGSERIAL).
	ID int64
	// FileID — идентификатор private-файла на момент создания заявки.
	// Запись переживает удаление файла (FK отсутствует намеренно).
	FileID int64
	// Requester — свободная строка идентичности запросившего (без верификации).
	Requester string
	// Reason — причина запроса (опционально).
	Reason *string
	// RequestedAt — время создания заявки.
	RequestedAt time.Time
}
