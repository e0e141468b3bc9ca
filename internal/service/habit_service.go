package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/habitribe/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrHabitNotFound 在指定习惯不存在时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitInvalidGoal 当目标值或单位配置异常时返回
	ErrHabitInvalidGoal = errors.New("invalid habit goal configuration")
	// ErrHabitInvalidSchedule 当重复计划的星期下标越界时返回
	ErrHabitInvalidSchedule = errors.New("invalid habit schedule")
)

// HabitService 负责 Habit 数据的增删改查
// GoalValue 必须为正整数，GoalUnit 仅支持 minutes/count
// Schedule.Days 为空表示每天执行，下游物化引擎据此判定

type HabitService struct {
	db *gorm.DB
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	UserID          uint
	Name            string
	Icon            string
	GoalValue       int
	GoalUnit        string
	Schedule        db.Schedule
	ReminderEnabled bool
	ReminderTime    string
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// ListByUser 返回指定用户的全部习惯
func (s *HabitService) ListByUser(userID uint) ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return habits, nil
}

// ListAll 返回系统内全部习惯，供每日批处理使用
func (s *HabitService) ListAll() ([]db.Habit, error) {
	var habits []db.Habit
	if err := s.db.Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list all habits: %w", err)
	}
	return habits, nil
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:          input.UserID,
		Name:            strings.TrimSpace(input.Name),
		Icon:            strings.TrimSpace(input.Icon),
		GoalValue:       input.GoalValue,
		GoalUnit:        strings.TrimSpace(strings.ToLower(input.GoalUnit)),
		Schedule:        input.Schedule,
		ReminderEnabled: input.ReminderEnabled,
		ReminderTime:    strings.TrimSpace(input.ReminderTime),
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯。目标值的修改只影响之后物化的打卡记录，
// 已存在记录保留创建时的目标快照。
func (s *HabitService) Update(id uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	var existing db.Habit
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Icon = strings.TrimSpace(input.Icon)
	existing.GoalValue = input.GoalValue
	existing.GoalUnit = strings.TrimSpace(strings.ToLower(input.GoalUnit))
	existing.Schedule = input.Schedule
	existing.ReminderEnabled = input.ReminderEnabled
	existing.ReminderTime = strings.TrimSpace(input.ReminderTime)

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return &existing, nil
}

// Delete 删除习惯并级联删除其全部打卡记录
func (s *HabitService) Delete(id uint) error {
	var habit db.Habit
	if err := s.db.First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHabitNotFound
		}
		return fmt.Errorf("find habit: %w", err)
	}

	// 打卡记录归习惯独占，删除必须连带清理
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&db.HabitEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&habit).Error
	}); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	return nil
}

func validateHabitInput(input HabitInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return fmt.Errorf("habit name is required")
	}

	if input.UserID == 0 {
		return fmt.Errorf("habit user is required")
	}

	// 物化引擎以 goal > 0 为前提，非正目标在这里一律拒绝
	if input.GoalValue <= 0 {
		return fmt.Errorf("%w: goal value must be positive", ErrHabitInvalidGoal)
	}

	unit := strings.TrimSpace(strings.ToLower(input.GoalUnit))
	if unit != "minutes" && unit != "count" {
		return fmt.Errorf("%w: unsupported unit %s", ErrHabitInvalidGoal, input.GoalUnit)
	}

	if err := input.Schedule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrHabitInvalidSchedule, err)
	}

	return nil
}
