// Пакет blobstore — адаптер S3-совместимого объектного хранилища (MinIO).
// Ключи объектов — непрозрачные строки с префиксом видимости (public/…, private/…).
// Префикс сохраняется в раскладке bucket'а, но контроль доступа на него
// не опирается: видимость проверяется сервисным слоем на каждом read path.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client — клиент объектного хранилища поверх minio-go.
type Client struct {
	mc     *minio.Client
	bucket string
	useSSL bool
	logger *slog.Logger
}

// New создаёт клиент MinIO и проверяет существование bucket'а,
// создавая его при необходимости.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *slog.Logger) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("создание клиента MinIO: %w", err)
	}

	exists, err := mc.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("проверка bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("создание bucket %q: %w", bucket, err)
		}
		logger.Info("Bucket создан", slog.String("bucket", bucket))
	}

	return &Client{
		mc:     mc,
		bucket: bucket,
		useSSL: useSSL,
		logger: logger.With(slog.String("component", "blobstore")),
	}, nil
}

// Put записывает объект под указанным ключом.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("запись объекта %q: %w", key, err)
	}

	c.logger.Debug("Объект записан",
		slog.String("key", key),
		slog.Int64("size", size),
	)
	return nil
}

// Remove удаляет объект по ключу.
// Удаление несуществующего объекта в S3 не является ошибкой.
func (c *Client) Remove(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("удаление объекта %q: %w", key, err)
	}

	c.logger.Debug("Объект удалён", slog.String("key", key))
	return nil
}

// PresignedGetURL возвращает временную подписанную ссылку на скачивание объекта.
func (c *Client) PresignedGetURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("подпись ссылки для %q: %w", key, err)
	}
	return u.String(), nil
}

// HealthURL возвращает URL liveness-проверки MinIO для мониторинга зависимостей.
func (c *Client) HealthURL() string {
	scheme := "http"
	if c.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.mc.EndpointURL().Host)
}
