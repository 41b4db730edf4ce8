package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

// decodeJSON 解析 request body, 大小上限 1MB
//
// 錯誤:
//   - BadRequestCode: body 為空, 不是合法 json, 欄位型別錯誤, 或 json 之後還有資料
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Wrap(apperr.BadRequestCode, "request body is empty", err)
		}
		return apperr.Wrap(apperr.BadRequestCode, "invalid request body", err)
	}
	// body 只能有一個 json 值
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Wrap(apperr.BadRequestCode, "invalid request body", errors.New("unexpected data after json body"))
	}
	return nil
}

// validationError 將 validator 錯誤轉成 400, 只回傳第一個欄位
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := jsonFieldPath(fe.Namespace())
		return apperr.Wrap(apperr.BadRequestCode, fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag()), err).
			WithField("field", field)
	}
	return apperr.Wrap(apperr.BadRequestCode, "invalid request", err)
}

// CreateOrderRequest.Items[0].Quantity -> items[0].quantity
func jsonFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

// newValidator 以 json tag 作為欄位名稱
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func pathID(r *http.Request, key string) (uint, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.NotFoundCode, apperr.ErrStrMap[apperr.NotFoundCode])
	}
	return uint(id), nil
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
