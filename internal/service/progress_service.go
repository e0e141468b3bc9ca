package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/habitribe/internal/db"
	"gorm.io/gorm"
)

// ErrInvalidMonth 当年月不符合 YYYY-MM 格式时返回
var ErrInvalidMonth = fmt.Errorf("invalid month format, expected YYYY-MM")

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ProgressService 负责进度聚合，只读打卡记录
// 单条记录的完成率为 min(progress, goal) / goal，超额完成封顶 100%
// 百分比在对外输出时才做四舍五入，中间聚合全程浮点，避免误差累积

type ProgressService struct {
	db *gorm.DB
}

// NewProgressService 构造 ProgressService
func NewProgressService(gdb *gorm.DB) *ProgressService {
	return &ProgressService{db: gdb}
}

// DayProgress 返回用户某天全部打卡记录的平均完成率。
// 当天没有任何记录时 ok 为 false，调用方必须把"无数据"与 0% 区分开。
func (s *ProgressService) DayProgress(userID uint, date string) (int, bool, error) {
	normalized, err := ParseEntryDate(date)
	if err != nil {
		return 0, false, err
	}

	entries, err := s.userEntries(userID, "habit_entries.entry_date = ?", normalized)
	if err != nil {
		return 0, false, err
	}

	if len(entries) == 0 {
		return 0, false, nil
	}

	return roundPercent(averageRatio(entries)), true, nil
}

// MonthProgress 返回用户某个月的逐日完成率序列。
// 只包含至少有一条记录的日期，没有记录的日期缺席而不是补零。
func (s *ProgressService) MonthProgress(userID uint, yearMonth string) (map[string]int, error) {
	trimmed := strings.TrimSpace(yearMonth)
	if !monthPattern.MatchString(trimmed) {
		return nil, ErrInvalidMonth
	}

	entries, err := s.userEntries(userID, "habit_entries.entry_date LIKE ?", trimmed+"-%")
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]db.HabitEntry)
	for _, entry := range entries {
		byDate[entry.EntryDate] = append(byDate[entry.EntryDate], entry)
	}

	series := make(map[string]int, len(byDate))
	for date, dayEntries := range byDate {
		series[date] = roundPercent(averageRatio(dayEntries))
	}

	return series, nil
}

// ConsistencyScore 返回用户全部历史记录的平均完成率，用于跨用户对比。
// 没有任何记录的用户返回 0 而不是"无数据"：排行视图必须给每个成员一个数字。
func (s *ProgressService) ConsistencyScore(userID uint) (int, error) {
	entries, err := s.userEntries(userID, "", nil)
	if err != nil {
		return 0, err
	}

	if len(entries) == 0 {
		return 0, nil
	}

	return roundPercent(averageRatio(entries)), nil
}

func (s *ProgressService) userEntries(userID uint, cond string, arg interface{}) ([]db.HabitEntry, error) {
	var entries []db.HabitEntry

	query := s.db.Model(&db.HabitEntry{}).
		Joins("JOIN habits ON habits.id = habit_entries.habit_id").
		Where("habits.user_id = ? AND habits.deleted_at IS NULL", userID)

	if cond != "" {
		query = query.Where(cond, arg)
	}

	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list user entries: %w", err)
	}

	return entries, nil
}

// entryRatio 计算单条记录的完成率，超额封顶 1.0
// 物化引擎保证 goal > 0，这里不再防御
func entryRatio(entry db.HabitEntry) float64 {
	progress := entry.Progress
	if progress > entry.Goal {
		progress = entry.Goal
	}
	return float64(progress) / float64(entry.Goal)
}

func averageRatio(entries []db.HabitEntry) float64 {
	var sum float64
	for _, entry := range entries {
		sum += entryRatio(entry)
	}
	return sum / float64(len(entries))
}

// roundPercent 四舍五入到最近的整数百分比
func roundPercent(ratio float64) int {
	return int(math.Floor(ratio*100 + 0.5))
}
