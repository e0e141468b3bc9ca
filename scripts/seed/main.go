package main

import (
	"fmt"
	"log"
	"time"

	"github.com/habitribe/internal/config"
	"github.com/habitribe/internal/db"
	"github.com/habitribe/internal/service"
)

// 开发环境测试数据生成器
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	users := service.NewUserService(db.DB)
	habits := service.NewHabitService(db.DB)
	entries := service.NewEntryService(db.DB)
	tribes := service.NewTribeService(db.DB, service.NewProgressService(db.DB))

	alice, err := users.Register("alice", "password123", "Alice")
	if err != nil {
		log.Fatal("创建用户失败:", err)
	}
	bob, err := users.Register("bob", "password123", "Bob")
	if err != nil {
		log.Fatal("创建用户失败:", err)
	}

	seedHabits := []service.HabitInput{
		{UserID: alice.ID, Name: "晨跑", Icon: "run", GoalValue: 30, GoalUnit: "minutes"},
		{UserID: alice.ID, Name: "阅读", Icon: "book", GoalValue: 20, GoalUnit: "minutes", Schedule: db.Schedule{Days: []int{1, 3, 5}}},
		{UserID: bob.ID, Name: "喝水", Icon: "water", GoalValue: 8, GoalUnit: "count"},
	}

	created := make([]db.Habit, 0, len(seedHabits))
	for _, input := range seedHabits {
		habit, err := habits.Create(input)
		if err != nil {
			log.Fatal("创建习惯失败:", err)
		}
		created = append(created, *habit)
	}

	// 物化最近一周并随机补一些进度
	today := time.Now().UTC()
	for i := 6; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format(db.EntryDateFormat)
		materialized, err := entries.Materialize(created, date)
		if err != nil {
			log.Fatal("物化打卡记录失败:", err)
		}
		for j, entry := range materialized {
			progress := entry.Goal * (j + i) % (entry.Goal + 1)
			if _, err := entries.UpdateProgress(entry.HabitID, date, progress); err != nil {
				log.Fatal("更新进度失败:", err)
			}
		}
	}

	tribe, err := tribes.Create(service.TribeInput{
		Name:        "早起部落",
		Description: "**每天六点起床**，互相监督。",
		LeaderID:    alice.ID,
	})
	if err != nil {
		log.Fatal("创建部落失败:", err)
	}
	if _, err := tribes.Join(bob.ID, tribe.InviteCode); err != nil {
		log.Fatal("加入部落失败:", err)
	}

	fmt.Printf("完成：用户 alice/bob（密码 password123），部落邀请码 %s\n", tribe.InviteCode)
}
