package db

import (
	"gorm.io/gorm"
)

// EntryDateFormat 是打卡日期在库内与接口边界统一使用的格式
const EntryDateFormat = "2006-01-02"

// 打卡记录的派生状态，completed 当且仅当 progress >= goal
const (
	EntryStatusPending   = "pending"
	EntryStatusCompleted = "completed"
)

// Habit 定义了习惯模型
// GoalValue/GoalUnit 描述每日目标，例如 30 minutes
// Schedule 描述生效的星期集合，空集合代表每天
// ReminderTime 形如 "09:00"，仅在 ReminderEnabled 时有意义
type Habit struct {
	gorm.Model
	UserID          uint `gorm:"index"`
	Name            string
	Icon            string
	GoalValue       int
	GoalUnit        string
	Schedule        Schedule `gorm:"type:text"`
	ReminderEnabled bool
	ReminderTime    string
}

// HabitEntry 记录单个习惯在某一天的目标与进度
// HabitID + EntryDate 为复合主键，保证同一天至多一条记录，
// 这是批处理与按需读取并发创建时唯一的防重机制
// Goal 在创建时快照习惯当时的目标值，之后修改习惯不回溯
type HabitEntry struct {
	HabitID    uint   `gorm:"primaryKey;autoIncrement:false"`
	Habit      Habit  `gorm:"constraint:OnDelete:CASCADE"`
	EntryDate  string `gorm:"primaryKey;size:10"`
	Goal       int
	Progress   int
	Status     string
	ProofImage string
	CreatedAt  int64 `gorm:"autoCreateTime"`
	UpdatedAt  int64 `gorm:"autoUpdateTime"`
}

// TableName 保持与历史数据一致的表名
func (HabitEntry) TableName() string {
	return "habit_entries"
}

// StatusFor 根据进度和目标推导状态
func StatusFor(progress, goal int) string {
	if goal > 0 && progress >= goal {
		return EntryStatusCompleted
	}
	return EntryStatusPending
}
