package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRequireSecret_Valid — запрос с верным секретом проходит.
func TestRequireSecret_Valid(t *testing.T) {
	handler := RequireSecret([]byte("s3cret"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/files/42", nil)
	req.Header.Set(SecretHeader, "s3cret")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}
}

// TestRequireSecret_Rejected — неверный и отсутствующий секрет дают 401.
func TestRequireSecret_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"wrong secret", "nope"},
		{"empty header", ""},
		{"prefix of secret", "s3cre"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireSecret([]byte("s3cret"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler не должен быть вызван")
			}))

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/files/42", nil)
			if tt.header != "" {
				req.Header.Set(SecretHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// TestNormalizePath — нормализация путей для лейблов метрик.
func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/api/v1/files", "/api/v1/files"},
		{"/api/v1/search", "/api/v1/search"},
		{"/health/live", "/health/live"},
		{"/api/v1/files/42", "/api/v1/files/{id}"},
		{"/api/v1/files/42/download", "/api/v1/files/{id}/download"},
		{"/api/v1/files/42/request", "/api/v1/files/{id}/request"},
		{"/api/v1/files/42/requests", "/api/v1/files/{id}/requests"},
		{"/api/v1/files/abc", "/api/v1/files/abc"},
		{"/api/v1/files/42/unknown", "/api/v1/files/42/unknown"},
		{"/metrics", "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.expected {
				t.Errorf("normalizePath(%q) = %q, ожидалось %q", tt.path, got, tt.expected)
			}
		})
	}
}
