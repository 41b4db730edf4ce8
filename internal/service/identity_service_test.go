package service

import (
	"context"
	"sync"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth/jwt_auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// fakeVerifier 以 token 字串對應 claims
type fakeVerifier struct {
	mu     sync.Mutex
	claims map[string]*jwt_auth.IdentityClaims
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, rawToken string) (*jwt_auth.IdentityClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rawToken == "" {
		return nil, jwt_auth.ErrTokenMissing
	}
	c, ok := f.claims[rawToken]
	if !ok {
		return nil, jwt_auth.ErrTokenInvalid
	}
	copied := *c
	return &copied, nil
}

func (f *fakeVerifier) set(token string, claims *jwt_auth.IdentityClaims) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims[token] = claims
}

// countingUserRepo 記錄寫入次數
type countingUserRepo struct {
	db.IUserRepository
	mu      sync.Mutex
	creates int
	updates int
}

func (c *countingUserRepo) CreateUserIfNotExists(ctx context.Context, user *model.User) (*model.User, error) {
	c.mu.Lock()
	c.creates++
	c.mu.Unlock()
	return c.IUserRepository.CreateUserIfNotExists(ctx, user)
}

func (c *countingUserRepo) UpdateUserFields(ctx context.Context, id uint, fields map[string]any) error {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()
	return c.IUserRepository.UpdateUserFields(ctx, id, fields)
}

func newIdentityFixture(t *testing.T, admins ...string) (*IdentityService, *fakeVerifier, *countingUserRepo) {
	t.Helper()
	unified := newTestUnifiedDB(t)
	verifier := &fakeVerifier{claims: map[string]*jwt_auth.IdentityClaims{}}
	repo := &countingUserRepo{IUserRepository: unified}
	isAdmin := func(subject string) bool {
		for _, a := range admins {
			if a == subject {
				return true
			}
		}
		return false
	}
	return NewIdentityService(verifier, repo, isAdmin, zerolog.Nop()), verifier, repo
}

func TestResolveTokenProvisionsUser(t *testing.T) {
	svc, verifier, repo := newIdentityFixture(t)
	verifier.set("tok", &jwt_auth.IdentityClaims{Subject: "sub-1", Email: "a@example.com", FullName: "Alice"})

	user, err := svc.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "sub-1", user.ExternalID)
	require.Equal(t, "sub-1", user.Username)
	require.Equal(t, "a@example.com", user.Email)
	require.Equal(t, "Alice", user.DisplayName)
	require.False(t, user.IsAdmin)
	require.Equal(t, 1, repo.creates)
}

func TestResolveTokenIsIdempotent(t *testing.T) {
	svc, verifier, repo := newIdentityFixture(t)
	verifier.set("tok", &jwt_auth.IdentityClaims{Subject: "sub-1", Email: "a@example.com"})

	first, err := svc.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	second, err := svc.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, repo.creates)
	require.Zero(t, repo.updates)
}

func TestResolveTokenSyncsEmail(t *testing.T) {
	svc, verifier, repo := newIdentityFixture(t)
	verifier.set("tok", &jwt_auth.IdentityClaims{Subject: "sub-1", Email: "old@example.com"})
	first, err := svc.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)

	verifier.set("tok", &jwt_auth.IdentityClaims{Subject: "sub-1", Email: "new@example.com"})
	user, err := svc.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, first.ID, user.ID)
	require.Equal(t, "new@example.com", user.Email)
	require.Equal(t, 1, repo.updates)

	stored, err := svc.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "new@example.com", stored.Email)
}

func TestResolveTokenAdminSubject(t *testing.T) {
	svc, verifier, _ := newIdentityFixture(t, "admin-sub")
	verifier.set("tok", &jwt_auth.IdentityClaims{Subject: "admin-sub", Email: "root@example.com"})

	user, err := svc.ResolveToken(context.Background(), "tok")
	require.NoError(t, err)
	require.True(t, user.IsAdmin)
}

func TestResolveTokenRejectsInvalidToken(t *testing.T) {
	svc, _, repo := newIdentityFixture(t)

	for _, tok := range []string{"", "unknown"} {
		_, err := svc.ResolveToken(context.Background(), tok)
		require.ErrorIs(t, err, ErrAuthentication)
		require.Equal(t, apperr.UnauthenticatedCode, apperr.CodeOf(err))
	}
	require.Zero(t, repo.creates)
}

func TestResolveTokenConcurrentFirstLogin(t *testing.T) {
	svc, verifier, _ := newIdentityFixture(t)
	verifier.set("tok", &jwt_auth.IdentityClaims{Subject: "sub-1", Email: "a@example.com"})

	const n = 5
	ids := make([]uint, n)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			user, err := svc.ResolveToken(ctx, "tok")
			if err != nil {
				return err
			}
			ids[i] = user.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for i := 0; i < n; i++ {
		require.NotZero(t, ids[i])
		require.Equal(t, ids[0], ids[i])
	}
}

func TestGetUserNotFound(t *testing.T) {
	svc, _, _ := newIdentityFixture(t)
	_, err := svc.GetUser(context.Background(), 12345)
	require.ErrorIs(t, err, db.ErrUserNotFound)
	require.Equal(t, apperr.NotFoundCode, apperr.CodeOf(err))
}
