package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	user *model.User
	err  error
	last string
}

func (f *fakeIdentity) ResolveToken(ctx context.Context, rawToken string) (*model.User, error) {
	f.last = rawToken
	return f.user, f.err
}

func (f *fakeIdentity) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	return f.user, f.err
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthPayloadMiddleware(t *testing.T) {
	identity := &fakeIdentity{user: &model.User{ID: 3}}
	var gotUser *model.User
	var gotErr error
	h := AuthPayloadMiddleware(identity)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = util.GetUserFromContext(r.Context())
		gotErr = util.GetAuthErrFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Nil(t, gotUser)
	require.NoError(t, gotErr)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc.def.ghi")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, uint(3), gotUser.ID)
	require.Equal(t, "abc.def.ghi", identity.last)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Nil(t, gotUser)
	require.Equal(t, apperr.UnauthenticatedCode, apperr.CodeOf(gotErr))

	identity.err = apperr.New(apperr.UnauthenticatedCode, "bad")
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Error(t, gotErr)
}

func TestAdminMiddleware(t *testing.T) {
	h := AdminMiddleware(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(util.WithUser(req.Context(), &model.User{ID: 1}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(util.WithUser(req.Context(), &model.User{ID: 1, IsAdmin: true}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewarePropagatesResolveError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(util.WithAuthErr(req.Context(), errors.New("db down")))
	rec := httptest.NewRecorder()
	AuthMiddleware(okHandler).ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoverAndLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := RequestIdMiddleware(LoggerMiddleware(&logger)(RecoverMiddleware(panicking)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, buf.String(), "panic recovered")
	require.Contains(t, buf.String(), `"status":500`)
	require.Contains(t, buf.String(), `"request_id"`)
}

func TestRateLimitMiddlewareKeysByIP(t *testing.T) {
	seen := []string{}
	limiter := limiterFunc(func(ctx context.Context, key string) bool {
		seen = append(seen, key)
		return key != "10.0.0.9"
	})
	h := NewRateLimitMiddleware(limiter)(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "10.0.0.9:5555"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.9"}, seen)
}

type limiterFunc func(ctx context.Context, key string) bool

func (f limiterFunc) Allow(ctx context.Context, key string) bool { return f(ctx, key) }
