package service

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/habitribe/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrEntryNotFound 在指定打卡记录不存在时返回
	ErrEntryNotFound = errors.New("habit entry not found")
	// ErrInvalidDate 当日期不符合 YYYY-MM-DD 格式时返回
	ErrInvalidDate = errors.New("invalid date format, expected YYYY-MM-DD")
	// ErrInvalidProgress 当进度为负数时返回
	ErrInvalidProgress = errors.New("progress must not be negative")
)

var entryDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// EntryService 负责打卡记录的物化与进度更新
// 物化指为当天生效的习惯补齐缺失的打卡记录：每日批处理和按需读取
// 两条路径可能并发触发，防重完全依赖 (habit_id, entry_date) 主键上的
// ON CONFLICT DO NOTHING，进程内不加锁
type EntryService struct {
	db  *gorm.DB
	now func() time.Time
}

// EntryView 将打卡记录与习惯元数据拼接后返回给调用方
type EntryView struct {
	HabitID    uint
	HabitName  string
	Icon       string
	Progress   int
	Goal       int
	GoalUnit   string
	Status     string
	ProofImage string
	EntryDate  string
}

// NewEntryService 构造 EntryService
func NewEntryService(gdb *gorm.DB) *EntryService {
	return &EntryService{db: gdb, now: time.Now}
}

// ParseEntryDate 校验并规范化边界传入的日期字符串
func ParseEntryDate(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !entryDatePattern.MatchString(trimmed) {
		return "", ErrInvalidDate
	}
	if _, err := time.ParseInLocation(db.EntryDateFormat, trimmed, time.UTC); err != nil {
		return "", ErrInvalidDate
	}
	return trimmed, nil
}

// TodayUTC 返回统一口径的"今天"，按 UTC 计算
func (s *EntryService) TodayUTC() string {
	return s.now().UTC().Format(db.EntryDateFormat)
}

// Materialize 保证 habits 中在 date 生效的每个习惯恰有一条打卡记录，
// 并返回这些习惯当天的完整记录集合（已存在的 + 新建的）。
// 对同一输入重复调用是幂等的；并发调用由主键冲突吸收，谁先写入谁生效。
func (s *EntryService) Materialize(habits []db.Habit, date string) ([]db.HabitEntry, error) {
	activeDate, err := time.ParseInLocation(db.EntryDateFormat, date, time.UTC)
	if err != nil {
		return nil, ErrInvalidDate
	}

	active := make([]db.Habit, 0, len(habits))
	for _, habit := range habits {
		if habit.Schedule.IsActiveOn(activeDate) {
			active = append(active, habit)
		}
	}

	// 当天没有生效的习惯时不触碰存储
	if len(active) == 0 {
		return []db.HabitEntry{}, nil
	}

	activeIDs := make([]uint, 0, len(active))
	for _, habit := range active {
		activeIDs = append(activeIDs, habit.ID)
	}

	var existing []db.HabitEntry
	if err := s.db.Where("habit_id IN ? AND entry_date = ?", activeIDs, date).
		Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}

	existingIDs := make(map[uint]struct{}, len(existing))
	for _, entry := range existing {
		existingIDs[entry.HabitID] = struct{}{}
	}

	missing := make([]db.HabitEntry, 0, len(active))
	for _, habit := range active {
		if _, ok := existingIDs[habit.ID]; ok {
			continue
		}
		// 目标值在此刻快照，之后修改习惯不回溯已物化的记录
		missing = append(missing, db.HabitEntry{
			HabitID:   habit.ID,
			EntryDate: date,
			Goal:      habit.GoalValue,
			Progress:  0,
			Status:    db.EntryStatusPending,
		})
	}

	if len(missing) > 0 {
		// 主键已存在时静默跳过，并发触发的另一方不会报错也不会重复
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "entry_date"}},
			DoNothing: true,
		}).Create(&missing).Error; err != nil {
			return nil, fmt.Errorf("materialize entries: %w", err)
		}
	}

	var result []db.HabitEntry
	if err := s.db.Where("habit_id IN ? AND entry_date = ?", activeIDs, date).
		Order("habit_id ASC").
		Find(&result).Error; err != nil {
		return nil, fmt.Errorf("reload entries: %w", err)
	}

	return result, nil
}

// EntriesForUserDate 按需物化：只处理该用户的习惯，再把记录与习惯元数据
// 拼接成视图返回。用户当天没有生效的习惯时返回空集合而不是错误。
func (s *EntryService) EntriesForUserDate(userID uint, date string) ([]EntryView, error) {
	if strings.TrimSpace(date) == "" {
		date = s.TodayUTC()
	}
	normalized, err := ParseEntryDate(date)
	if err != nil {
		return nil, err
	}

	var habits []db.Habit
	if err := s.db.Where("user_id = ?", userID).Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list user habits: %w", err)
	}

	entries, err := s.Materialize(habits, normalized)
	if err != nil {
		return nil, err
	}

	habitByID := make(map[uint]db.Habit, len(habits))
	for _, habit := range habits {
		habitByID[habit.ID] = habit
	}

	views := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		habit := habitByID[entry.HabitID]
		views = append(views, EntryView{
			HabitID:    entry.HabitID,
			HabitName:  habit.Name,
			Icon:       habit.Icon,
			Progress:   entry.Progress,
			Goal:       entry.Goal,
			GoalUnit:   habit.GoalUnit,
			Status:     entry.Status,
			ProofImage: entry.ProofImage,
			EntryDate:  entry.EntryDate,
		})
	}

	return views, nil
}

// UpdateProgress 更新某天的进度，并在同一次写入中重新推导状态，
// 保证 status 与 progress 永不失配。
func (s *EntryService) UpdateProgress(habitID uint, date string, progress int) (*db.HabitEntry, error) {
	normalized, err := ParseEntryDate(date)
	if err != nil {
		return nil, err
	}
	if progress < 0 {
		return nil, ErrInvalidProgress
	}

	var entry db.HabitEntry
	if err := s.db.Where("habit_id = ? AND entry_date = ?", habitID, normalized).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}

	entry.Progress = progress
	entry.Status = db.StatusFor(progress, entry.Goal)

	if err := s.db.Model(&db.HabitEntry{}).
		Where("habit_id = ? AND entry_date = ?", habitID, normalized).
		Updates(map[string]interface{}{
			"progress": entry.Progress,
			"status":   entry.Status,
		}).Error; err != nil {
		return nil, fmt.Errorf("update entry progress: %w", err)
	}

	return &entry, nil
}

// UpdateProofImage 记录打卡凭证图片
func (s *EntryService) UpdateProofImage(habitID uint, date, imageURL string) (*db.HabitEntry, error) {
	normalized, err := ParseEntryDate(date)
	if err != nil {
		return nil, err
	}

	var entry db.HabitEntry
	if err := s.db.Where("habit_id = ? AND entry_date = ?", habitID, normalized).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}

	entry.ProofImage = strings.TrimSpace(imageURL)
	if err := s.db.Model(&db.HabitEntry{}).
		Where("habit_id = ? AND entry_date = ?", habitID, normalized).
		Update("proof_image", entry.ProofImage).Error; err != nil {
		return nil, fmt.Errorf("update entry image: %w", err)
	}

	return &entry, nil
}

// RunDailyMaterialization 每日批处理入口：为系统内全部习惯物化"今天"的
// 打卡记录。失败原样上抛给外部调度器，不在内部吞掉或重试；由于插入是
// 幂等的，下一次整批重跑不会产生重复记录。
func (s *EntryService) RunDailyMaterialization() error {
	var habits []db.Habit
	if err := s.db.Find(&habits).Error; err != nil {
		return fmt.Errorf("load habits for daily materialization: %w", err)
	}

	today := s.TodayUTC()
	entries, err := s.Materialize(habits, today)
	if err != nil {
		return err
	}

	log.Printf("daily materialization done: date=%s habits=%d entries=%d", today, len(habits), len(entries))
	return nil
}
