// auth.go — middleware аутентификации мутирующих операций File Registry.
// Модель безопасности предельно простая: один общий секрет, передаваемый
// в заголовке X-Upload-Secret. Сравнение — константное по времени, чтобы
// не допустить восстановления секрета посимвольным замером задержек.
package middleware

import (
	"crypto/subtle"
	"net/http"

	apierrors "github.com/bigkaa/gofileregistry/internal/api/errors"
)

// SecretHeader — заголовок, в котором клиент передаёт общий секрет.
const SecretHeader = "X-Upload-Secret"

// RequireSecret возвращает middleware, пропускающий запрос только при
// совпадении заголовка X-Upload-Secret с настроенным секретом.
// Отсутствующий и неверный секрет дают одинаковый ответ 401 — различать
// эти случаи для клиента незачем.
func RequireSecret(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := []byte(r.Header.Get(SecretHeader))
			if subtle.ConstantTimeCompare(presented, secret) != 1 {
				apierrors.Unauthorized(w, "Неверный или отсутствующий "+SecretHeader)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
