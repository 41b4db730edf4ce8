package middleware

import (
	"net/http"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/util"
	"github.com/rs/zerolog"
)

type StatusRecoder struct {
	http.ResponseWriter
	status int
}

func (w *StatusRecoder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *StatusRecoder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *StatusRecoder) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// 記錄request 請求
// 帶有 request_id 的 logger 會放入 context, 之後可用 zerolog.Ctx 取得
func LoggerMiddleware(logger *zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestId := util.GetRequestID(r.Context())
			reqLogger := logger.With().Str("request_id", requestId).Logger()

			recoder := &StatusRecoder{ResponseWriter: w}
			r = r.WithContext(reqLogger.WithContext(r.Context()))
			next.ServeHTTP(recoder, r)

			// 下游可能已經加上 user_id
			l := zerolog.Ctx(r.Context())
			event := l.Info()
			if recoder.Status() >= http.StatusInternalServerError {
				event = l.Error()
			}
			event.
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_ip", clientIP(r)).
				Int("status", recoder.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
