package config

import (
	"fmt"
	"os"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr      string
	Port            string
	DatabasePath    string
	SessionSecret   string
	GinMode         string
	UploadDir       string
	UploadURLPath   string
	ClientOriginURL string
	BootstrapUser   string
	BootstrapPass   string
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "habitribe.db"
	}

	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		sessionSecret = "habitribe-dev-secret"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	uploadDir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if uploadDir == "" {
		uploadDir = "web/static/uploads"
	}

	uploadURLPath := strings.TrimSpace(os.Getenv("UPLOAD_URL_PATH"))
	if uploadURLPath == "" {
		uploadURLPath = "/static/uploads"
	}

	clientOriginURL := strings.TrimSpace(os.Getenv("CLIENT_ORIGIN_URL"))
	if clientOriginURL == "" {
		clientOriginURL = "http://localhost:5173"
	}

	bootstrapUser := strings.TrimSpace(os.Getenv("BOOTSTRAP_USER_NAME"))
	bootstrapPass := strings.TrimSpace(os.Getenv("BOOTSTRAP_USER_PASSWORD"))

	return AppConfig{
		ListenAddr:      listenAddr,
		Port:            port,
		DatabasePath:    databasePath,
		SessionSecret:   sessionSecret,
		GinMode:         ginMode,
		UploadDir:       uploadDir,
		UploadURLPath:   uploadURLPath,
		ClientOriginURL: clientOriginURL,
		BootstrapUser:   bootstrapUser,
		BootstrapPass:   bootstrapPass,
	}
}
