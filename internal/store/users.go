package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/krzysztof-programista/NotesApp/internal/model"
)

// Users 是基于 gorm 的用户目录。
type Users struct {
	db *gorm.DB
}

// NewUsers 创建用户目录。
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByEmail 按邮箱查找用户，不存在时返回 ErrNotFound。
func (s *Users) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID 按 ID 查找用户，不存在时返回 ErrNotFound。
func (s *Users) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create 插入一个未激活的新用户。
//
// 邮箱冲突（唯一索引 1062）返回 ErrEmailTaken。
func (s *Users) Create(ctx context.Context, email, passwordHash string) (*model.User, error) {
	user := model.User{
		Email:       email,
		Password:    passwordHash,
		IsActivated: false,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateEntry(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Activate 将用户标记为已激活。
//
// 用户不存在返回 ErrNotFound，已经激活过返回 ErrAlreadyActivated；
// 激活标志只会从 false 翻转到 true 一次。
func (s *Users) Activate(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.IsActivated {
		return nil, ErrAlreadyActivated
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("is_activated", true).Error; err != nil {
		return nil, fmt.Errorf("activate user: %w", err)
	}
	user.IsActivated = true
	return &user, nil
}
