package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/krzysztof-programista/NotesApp/internal/model"
)

// Notes 是基于 gorm 的笔记仓库。
//
// Update 和 Delete 会先加载笔记并比对归属，
// 调用方传入的必须是鉴权后解析出的用户 ID。
type Notes struct {
	db *gorm.DB
}

// NewNotes 创建笔记仓库。
func NewNotes(db *gorm.DB) *Notes {
	return &Notes{db: db}
}

// Create 为指定用户创建一条笔记。
func (s *Notes) Create(ctx context.Context, userID uint, title, text string) (*model.Note, error) {
	note := model.Note{
		UserID:   userID,
		Title:    title,
		NoteText: text,
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &note, nil
}

// ListByUser 返回指定用户的全部笔记。
func (s *Notes) ListByUser(ctx context.Context, userID uint) ([]model.Note, error) {
	notes := []model.Note{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// Update 更新笔记的标题与正文。
//
// 笔记不存在返回 ErrNotFound，笔记不属于 callerID 返回 ErrNotOwner。
func (s *Notes) Update(ctx context.Context, id, callerID uint, title, text string) error {
	note, err := s.load(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(note).
		Updates(map[string]interface{}{"title": title, "note_text": text}).Error; err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Delete 删除笔记，归属校验规则同 Update。
func (s *Notes) Delete(ctx context.Context, id, callerID uint) error {
	note, err := s.load(ctx, id, callerID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(note).Error; err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}

func (s *Notes) load(ctx context.Context, id, callerID uint) (*model.Note, error) {
	var note model.Note
	if err := s.db.WithContext(ctx).First(&note, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load note: %w", err)
	}
	if note.UserID != callerID {
		return nil, ErrNotOwner
	}
	return &note, nil
}
