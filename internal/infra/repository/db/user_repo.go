package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUserNotFound 使用者不存在
	ErrUserNotFound = errors.New("user not found")
)

// IUserRepository User 相關操作介面
type IUserRepository interface {
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error)
	CreateUserIfNotExists(ctx context.Context, user *model.User) (*model.User, error)
	UpdateUserFields(ctx context.Context, id uint, fields map[string]any) error
}

type UserRepo struct {
	dbDao *DbDao
}

func NewUserRepo(dbDao *DbDao) *UserRepo {
	return &UserRepo{dbDao: dbDao}
}

// Read - 根據ID查詢用戶
func (s *UserRepo) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.dbDao.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ClassifyError(err)
	}
	return &user, nil
}

// Read - 根據 auth provider subject 查詢用戶
func (s *UserRepo) GetUserByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	var user model.User
	err := s.dbDao.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ClassifyError(err)
	}
	return &user, nil
}

// CreateUserIfNotExists 以 external_id 為唯一鍵建立用戶
// 同時第一次登入時, 只有一筆會寫入, 其餘 DO NOTHING 後讀回已存在的那筆
func (s *UserRepo) CreateUserIfNotExists(ctx context.Context, user *model.User) (*model.User, error) {
	err := s.dbDao.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(user).Error
	if err != nil {
		return nil, ClassifyError(err)
	}
	return s.GetUserByExternalID(ctx, user.ExternalID)
}

// Update - 部分更新用戶
func (s *UserRepo) UpdateUserFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	result := s.dbDao.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return ClassifyError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
