package model

import "time"

// User 表示系统用户。
type User struct {
	ID          uint      `gorm:"primaryKey"`                    // 用户 ID
	Email       string    `gorm:"type:varchar(191);uniqueIndex"` // 邮箱（唯一，作为登录名）
	Password    string    `gorm:"not null"`                      // bcrypt 哈希
	IsActivated bool      `gorm:"default:false"`                 // 账号是否已激活（激活后不再回退）
	CreatedAt   time.Time // 创建时间

	Notes []Note `gorm:"foreignKey:UserID"`
}
