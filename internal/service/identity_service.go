package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/auth/jwt_auth"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/rs/zerolog"
)

type IIdentityService interface {
	ResolveToken(ctx context.Context, rawToken string) (*model.User, error)
	GetUser(ctx context.Context, userID uint) (*model.User, error)
}

// AdminChecker 判斷 subject 是否為管理員, 由 config 提供
type AdminChecker func(subject string) bool

type IdentityService struct {
	verifier jwt_auth.ITokenVerifier
	userRepo db.IUserRepository
	isAdmin  AdminChecker
	logger   zerolog.Logger
}

func NewIdentityService(verifier jwt_auth.ITokenVerifier, userRepo db.IUserRepository, isAdmin AdminChecker, logger zerolog.Logger) *IdentityService {
	if verifier == nil {
		panic("NewIdentityService: verifier cannot be nil")
	}
	if userRepo == nil {
		panic("NewIdentityService: userRepo cannot be nil")
	}
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &IdentityService{
		verifier: verifier,
		userRepo: userRepo,
		isAdmin:  isAdmin,
		logger:   logger.With().Str("component", "identity_service").Logger(),
	}
}

// ResolveToken 驗證 bearer token 並取得對應的本地用戶
// 第一次登入時建立用戶, 之後以 token 內容同步 email 與管理員身分
// token 內容沒有變化時不會寫入
//
// 錯誤:
//   - UnauthenticatedCode: token 缺少, 格式錯誤, 簽章或時效驗證失敗, 缺少 sub/email
//   - InternalErrorCode / UnavailableCode: 資料庫錯誤
func (s *IdentityService) ResolveToken(ctx context.Context, rawToken string) (*model.User, error) {
	claims, err := s.verifier.VerifyToken(ctx, rawToken)
	if err != nil {
		s.logger.Debug().Err(err).Msg("token verification failed")
		return nil, apperr.Wrap(apperr.UnauthenticatedCode, apperr.ErrStrMap[apperr.UnauthenticatedCode], errors.Join(ErrAuthentication, err))
	}

	isAdmin := s.isAdmin(claims.Subject)

	user, err := s.userRepo.GetUserByExternalID(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, db.ErrUserNotFound) {
			return nil, wrapStorageError(err)
		}
		user, err = s.userRepo.CreateUserIfNotExists(ctx, &model.User{
			ExternalID:  claims.Subject,
			Username:    claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.FullName,
			IsAdmin:     isAdmin,
		})
		if err != nil {
			return nil, wrapStorageError(err)
		}
		s.logger.Info().Uint("user_id", user.ID).Str("external_id", user.ExternalID).Msg("user provisioned")
	}

	fields := map[string]any{}
	if user.Email != claims.Email {
		fields["email"] = claims.Email
	}
	if user.IsAdmin != isAdmin {
		fields["is_admin"] = isAdmin
	}
	if len(fields) > 0 {
		if err := s.userRepo.UpdateUserFields(ctx, user.ID, fields); err != nil {
			return nil, wrapStorageError(err)
		}
		user.Email = claims.Email
		user.IsAdmin = isAdmin
	}

	return user, nil
}

func (s *IdentityService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrUserNotFound) {
			return nil, apperr.Wrap(apperr.NotFoundCode, ErrUserNotFound.Error(), err)
		}
		return nil, wrapStorageError(err)
	}
	return user, nil
}

var _ IIdentityService = (*IdentityService)(nil)
