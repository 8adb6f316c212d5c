// Пакет service — бизнес-логика File Registry.
// URLCache — LRU-кэш подписанных ссылок на скачивание public-файлов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
//
// Кэшируются только производные подписанные URL, никогда — метаданные:
// каждая операция сервиса перечитывает запись из PostgreSQL.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша ссылок.
var (
	urlCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fr_urlcache_hits_total",
		Help: "Общее количество попаданий в кэш подписанных ссылок.",
	})
	urlCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fr_urlcache_misses_total",
		Help: "Общее количество промахов кэша подписанных ссылок.",
	})
)

// URLCache — LRU-кэш подписанных ссылок с автоматическим TTL.
// TTL кэша должен быть меньше срока жизни самой подписанной ссылки,
// иначе вызывающий может получить уже истёкший URL.
type URLCache struct {
	cache *expirable.LRU[int64, string]
}

// NewURLCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewURLCache(maxSize int, ttl time.Duration) *URLCache {
	cache := expirable.NewLRU[int64, string](maxSize, nil, ttl)
	return &URLCache{cache: cache}
}

// Get возвращает подписанную ссылку из кэша по id файла.
// Возвращает (ссылка, true) при hit или ("", false) при miss.
func (c *URLCache) Get(fileID int64) (string, bool) {
	val, ok := c.cache.Get(fileID)
	if ok {
		urlCacheHitsTotal.Inc()
		return val, true
	}
	urlCacheMissesTotal.Inc()
	return "", false
}

// Set добавляет или обновляет ссылку в кэше.
func (c *URLCache) Set(fileID int64, url string) {
	c.cache.Add(fileID, url)
}

// Delete удаляет ссылку из кэша (инвалидация при удалении файла).
func (c *URLCache) Delete(fileID int64) {
	c.cache.Remove(fileID)
}
