// errors.go — ошибки бизнес-логики сервисного слоя.
// Таксономия соответствует направлению fail-closed: при частичном сбое
// предпочтительнее оставить доступ закрытым и данные на месте.
package service

import "errors"

var (
	// ErrUnauthorized — неверный секрет загрузки.
	ErrUnauthorized = errors.New("неверный секрет загрузки")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("файл не найден")
	// ErrPrivateFile — прямое скачивание private-файла запрещено,
	// доступ только через заявку и внешнее одобрение.
	ErrPrivateFile = errors.New("файл private — прямое скачивание запрещено")
	// ErrStorage — сбой вызова Blob Store.
	ErrStorage = errors.New("сбой объектного хранилища")
	// ErrPartialFailure — состояние метаданных и blob'ов разошлось
	// после многошаговой операции, требуется вмешательство оператора.
	ErrPartialFailure = errors.New("частичный сбой — состояние хранилищ разошлось")
	// ErrNotification — заявка сохранена, но уведомление не отправлено.
	ErrNotification = errors.New("сбой отправки уведомления")
)
