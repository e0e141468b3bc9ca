package db

import (
	"time"

	"gorm.io/gorm"
)

// Tribe 定义了部落模型
// InviteCode 全局唯一，成员凭邀请码加入
// LeaderID 指向创建者，创建者同时也是第一个成员
type Tribe struct {
	gorm.Model
	Name        string
	Description string
	LeaderID    uint
	InviteCode  string `gorm:"unique;not null"`
}

// TribeMember 记录部落成员关系
// TribeID + UserID 复合主键，保证同一用户在同一部落只出现一次
type TribeMember struct {
	TribeID  uint      `gorm:"primaryKey;autoIncrement:false"`
	Tribe    Tribe     `gorm:"constraint:OnDelete:CASCADE"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false"`
	User     User      `gorm:"constraint:OnDelete:CASCADE"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 保持与历史数据一致的表名
func (TribeMember) TableName() string {
	return "tribe_members"
}
