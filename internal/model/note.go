package model

import "time"

// Note 表示一条用户笔记。
//
// 笔记只属于一个用户，所有的读写操作都必须以鉴权后的用户 ID 为准。
type Note struct {
	ID        uint      `gorm:"primaryKey"` // 笔记唯一标识
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	UserID   uint   `gorm:"not null;index"`    // 所属用户 ID（创建后不可变）
	User     User   `gorm:"foreignKey:UserID"` // 所属用户
	Title    string // 标题
	NoteText string // 正文
}
