package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/config"
	"github.com/habitribe/internal/db"
	"github.com/habitribe/internal/handler"
	"github.com/habitribe/internal/router"
	"github.com/habitribe/internal/scheduler"
	"github.com/joho/godotenv"
)

func main() {
	// .env 不存在时静默使用环境变量
	_ = godotenv.Load()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 配置了引导账号时确保其存在，方便首次部署
	if err := db.EnsureUser(cfg.BootstrapUser, cfg.BootstrapPass); err != nil {
		log.Fatalf("failed to ensure bootstrap user: %v", err)
	}

	api := handler.NewAPI(db.DB, cfg.UploadDir, cfg.UploadURLPath)

	// 每日物化批处理：幂等，和按需读取并发触发也安全
	ds := scheduler.NewDailyScheduler(api.Entries())
	ds.Start()
	defer ds.Stop()

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api, cfg.SessionSecret, cfg.ClientOriginURL, cfg.UploadDir, cfg.UploadURLPath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
