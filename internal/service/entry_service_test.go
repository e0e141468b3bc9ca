package service

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/habitribe/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func mustCreateHabit(t *testing.T, gdb *gorm.DB, input HabitInput) *db.Habit {
	t.Helper()
	habit, err := NewHabitService(gdb).Create(input)
	if err != nil {
		t.Fatalf("failed to create habit: %v", err)
	}
	return habit
}

func TestMaterializeIdempotent(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	habit := mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "晨跑", GoalValue: 30, GoalUnit: "minutes"})
	svc := NewEntryService(gdb)

	first, err := svc.Materialize([]db.Habit{*habit}, "2025-07-04")
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(first))
	}
	if first[0].Goal != 30 || first[0].Progress != 0 || first[0].Status != db.EntryStatusPending {
		t.Fatalf("unexpected entry: %+v", first[0])
	}

	// 第二次调用观察到已有记录，不新建
	second, err := svc.Materialize([]db.Habit{*habit}, "2025-07-04")
	if err != nil {
		t.Fatalf("second Materialize returned error: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 entry after repeat, got %d", len(second))
	}

	var count int64
	if err := gdb.Model(&db.HabitEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row, got %d", count)
	}
}

func TestMaterializeSkipsInactiveDays(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	// 仅周一/周三/周五
	habit := mustCreateHabit(t, gdb, HabitInput{
		UserID:    1,
		Name:      "健身",
		GoalValue: 60,
		GoalUnit:  "minutes",
		Schedule:  db.Schedule{Days: []int{1, 3, 5}},
	})
	svc := NewEntryService(gdb)

	// 2025-07-06 周日：不生效，完全不触碰存储
	entries, err := svc.Materialize([]db.Habit{*habit}, "2025-07-06")
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries on inactive day, got %d", len(entries))
	}

	var count int64
	if err := gdb.Model(&db.HabitEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows, got %d", count)
	}

	// 2025-07-07 周一：生效
	entries, err = svc.Materialize([]db.Habit{*habit}, "2025-07-07")
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry on active day, got %d", len(entries))
	}
}

func TestMaterializePreservesExistingProgress(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	habit := mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "喝水", GoalValue: 8, GoalUnit: "count"})
	svc := NewEntryService(gdb)

	if _, err := svc.Materialize([]db.Habit{*habit}, "2025-07-04"); err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if _, err := svc.UpdateProgress(habit.ID, "2025-07-04", 5); err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}

	// 并发触发的另一方落在已有记录上：静默吸收，进度不被清零
	entries, err := svc.Materialize([]db.Habit{*habit}, "2025-07-04")
	if err != nil {
		t.Fatalf("repeat Materialize returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].Progress != 5 {
		t.Fatalf("expected progress 5 preserved, got %+v", entries)
	}
}

func TestMaterializeConcurrent(t *testing.T) {
	// 并发写需要真实文件库，共享内存库在多连接下不可靠
	dsn := "file:" + filepath.Join(t.TempDir(), "race.db") + "?_busy_timeout=5000"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}()

	if err := gdb.AutoMigrate(&db.Habit{}, &db.HabitEntry{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	habit := mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "背单词", GoalValue: 20, GoalUnit: "count"})
	svc := NewEntryService(gdb)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = svc.Materialize([]db.Habit{*habit}, "2025-07-04")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent Materialize %d returned error: %v", i, err)
		}
	}

	var entries []db.HabitEntry
	if err := gdb.Where("habit_id = ?", habit.ID).Find(&entries).Error; err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 entry after race, got %d", len(entries))
	}
	if entries[0].Progress != 0 || entries[0].Goal != 20 {
		t.Fatalf("unexpected entry after race: %+v", entries[0])
	}
}

func TestMaterializeGoalSnapshot(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	habitSvc := NewHabitService(gdb)
	habit := mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "骑车", GoalValue: 100, GoalUnit: "minutes"})
	svc := NewEntryService(gdb)

	if _, err := svc.Materialize([]db.Habit{*habit}, "2025-07-01"); err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}

	updated, err := habitSvc.Update(habit.ID, HabitInput{UserID: 1, Name: "骑车", GoalValue: 200, GoalUnit: "minutes"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if _, err := svc.Materialize([]db.Habit{*updated}, "2025-07-02"); err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}

	var before, after db.HabitEntry
	if err := gdb.Where("habit_id = ? AND entry_date = ?", habit.ID, "2025-07-01").First(&before).Error; err != nil {
		t.Fatalf("load first entry: %v", err)
	}
	if err := gdb.Where("habit_id = ? AND entry_date = ?", habit.ID, "2025-07-02").First(&after).Error; err != nil {
		t.Fatalf("load second entry: %v", err)
	}

	// 修改目标不回溯已物化的记录
	if before.Goal != 100 {
		t.Fatalf("expected snapshot goal 100, got %d", before.Goal)
	}
	if after.Goal != 200 {
		t.Fatalf("expected new goal 200, got %d", after.Goal)
	}
}

func TestEntriesForUserDate(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "晨跑", Icon: "run", GoalValue: 30, GoalUnit: "minutes"})
	mustCreateHabit(t, gdb, HabitInput{UserID: 2, Name: "别人的习惯", GoalValue: 10, GoalUnit: "count"})

	svc := NewEntryService(gdb)

	views, err := svc.EntriesForUserDate(1, "2025-07-04")
	if err != nil {
		t.Fatalf("EntriesForUserDate returned error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}

	view := views[0]
	if view.HabitName != "晨跑" || view.GoalUnit != "minutes" || view.Goal != 30 || view.Status != db.EntryStatusPending {
		t.Fatalf("unexpected view: %+v", view)
	}

	// 没有习惯的用户得到空集合而不是错误
	empty, err := svc.EntriesForUserDate(99, "2025-07-04")
	if err != nil {
		t.Fatalf("EntriesForUserDate returned error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty result, got %d", len(empty))
	}

	// 非法日期在边界拒绝
	if _, err := svc.EntriesForUserDate(1, "07/04/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := svc.EntriesForUserDate(1, "2025-13-40"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestEntriesForUserDateDefaultsToTodayUTC(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "阅读", GoalValue: 20, GoalUnit: "minutes"})

	svc := NewEntryService(gdb)
	svc.now = func() time.Time {
		return time.Date(2025, 7, 4, 23, 30, 0, 0, time.UTC)
	}

	views, err := svc.EntriesForUserDate(1, "")
	if err != nil {
		t.Fatalf("EntriesForUserDate returned error: %v", err)
	}
	if len(views) != 1 || views[0].EntryDate != "2025-07-04" {
		t.Fatalf("expected entry dated 2025-07-04, got %+v", views)
	}
}

func TestUpdateProgressStatusDerivation(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	habit := mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "俯卧撑", GoalValue: 100, GoalUnit: "count"})
	svc := NewEntryService(gdb)

	if _, err := svc.Materialize([]db.Habit{*habit}, "2025-07-04"); err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}

	entry, err := svc.UpdateProgress(habit.ID, "2025-07-04", 100)
	if err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}
	if entry.Status != db.EntryStatusCompleted {
		t.Fatalf("expected completed, got %s", entry.Status)
	}

	// 回落到目标以下状态同步翻回
	entry, err = svc.UpdateProgress(habit.ID, "2025-07-04", 40)
	if err != nil {
		t.Fatalf("UpdateProgress returned error: %v", err)
	}
	if entry.Status != db.EntryStatusPending {
		t.Fatalf("expected pending, got %s", entry.Status)
	}

	var stored db.HabitEntry
	if err := gdb.Where("habit_id = ? AND entry_date = ?", habit.ID, "2025-07-04").First(&stored).Error; err != nil {
		t.Fatalf("load entry: %v", err)
	}
	if stored.Progress != 40 || stored.Status != db.EntryStatusPending {
		t.Fatalf("stored entry inconsistent: %+v", stored)
	}
}

func TestUpdateProgressValidation(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	habit := mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "俯卧撑", GoalValue: 100, GoalUnit: "count"})
	svc := NewEntryService(gdb)

	if _, err := svc.UpdateProgress(habit.ID, "bad-date", 10); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := svc.UpdateProgress(habit.ID, "2025-07-04", -1); !errors.Is(err, ErrInvalidProgress) {
		t.Fatalf("expected ErrInvalidProgress, got %v", err)
	}

	// 未物化的 (habit, date) 是明确的 not-found，不与服务错误混淆
	if _, err := svc.UpdateProgress(habit.ID, "2025-07-04", 10); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRunDailyMaterialization(t *testing.T) {
	gdb, cleanup := setupServiceTestDB(t)
	defer cleanup()

	// 全量批处理不区分用户；周五 2025-07-04 只有每日习惯和含周五的习惯生效
	mustCreateHabit(t, gdb, HabitInput{UserID: 1, Name: "晨跑", GoalValue: 30, GoalUnit: "minutes"})
	mustCreateHabit(t, gdb, HabitInput{UserID: 2, Name: "健身", GoalValue: 60, GoalUnit: "minutes", Schedule: db.Schedule{Days: []int{5}}})
	mustCreateHabit(t, gdb, HabitInput{UserID: 2, Name: "周末爬山", GoalValue: 1, GoalUnit: "count", Schedule: db.Schedule{Days: []int{0, 6}}})

	svc := NewEntryService(gdb)
	svc.now = func() time.Time {
		return time.Date(2025, 7, 4, 8, 0, 0, 0, time.UTC)
	}

	if err := svc.RunDailyMaterialization(); err != nil {
		t.Fatalf("RunDailyMaterialization returned error: %v", err)
	}

	var count int64
	if err := gdb.Model(&db.HabitEntry{}).Where("entry_date = ?", "2025-07-04").Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries, got %d", count)
	}

	// 重跑整批不产生重复
	if err := svc.RunDailyMaterialization(); err != nil {
		t.Fatalf("repeat RunDailyMaterialization returned error: %v", err)
	}
	if err := gdb.Model(&db.HabitEntry{}).Where("entry_date = ?", "2025-07-04").Count(&count).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 entries after rerun, got %d", count)
	}
}

func TestParseEntryDate(t *testing.T) {
	if _, err := ParseEntryDate("2025-07-04"); err != nil {
		t.Fatalf("expected valid date, got %v", err)
	}

	for _, raw := range []string{"", "2025-7-4", "2025/07/04", "2025-02-30", "20250704", "2025-07-04T00:00:00Z"} {
		if _, err := ParseEntryDate(raw); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("expected ErrInvalidDate for %q, got %v", raw, err)
		}
	}
}
