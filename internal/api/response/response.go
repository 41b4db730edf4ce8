package response

import (
	"encoding/json"
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RetryAfterSeconds 回應 503 時建議 client 等待的秒數
const RetryAfterSeconds = "1"

func SuccessJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

func ErrorJSON(w http.ResponseWriter, status int, body map[string]any) {
	writeJSON(w, status, body)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

/*
WriteError 將錯誤轉成 {"error": ...} 回應
AppError 的 Fields 會合併到 body
5xx 只回傳 AppError.Message() 與 request_id, 底層錯誤只寫 log
非 AppError 一律視為 500
*/
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Wrap(apperr.InternalErrorCode, apperr.ErrStrMap[apperr.InternalErrorCode], err)
	}

	body := make(map[string]any, len(appErr.Fields)+2)
	for k, v := range appErr.Fields {
		body[k] = v
	}
	body["error"] = appErr.Message()

	if appErr.Code >= apperr.InternalErrorCode {
		requestID := util.GetRequestID(r.Context())
		body["request_id"] = requestID
		loggerFrom(r).Error().Err(err).
			Str("request_id", requestID).
			Int("status", int(appErr.Code)).
			Msg("request failed")
	}
	if appErr.Code == apperr.UnavailableCode {
		w.Header().Set("Retry-After", RetryAfterSeconds)
	}

	ErrorJSON(w, int(appErr.Code), body)
}

// loggerFrom 優先使用 logger middleware 放入 context 的 logger
func loggerFrom(r *http.Request) *zerolog.Logger {
	l := zerolog.Ctx(r.Context())
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}
