package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret, clientOrigin, uploadDir, uploadURLPath string) *gin.Engine {
	r := gin.Default()

	// PWA 跑在独立源上，需要带凭证的跨域访问
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{clientOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("habitribe_session", store))

	// 上传文件静态服务
	r.Static(uploadURLPath, uploadDir)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"success": true})
		})

		apiGroup.POST("/register", api.Register)
		apiGroup.POST("/login", api.Login)
		apiGroup.POST("/logout", api.Logout)

		// 需要认证的业务路由
		auth := apiGroup.Group("")
		auth.Use(handler.AuthRequired())
		{
			habits := auth.Group("/habits")
			{
				habits.GET("/user/:userId", api.ListHabits)
				habits.GET("/:id", api.GetHabit)
				habits.POST("", api.CreateHabit)
				habits.PUT("/:id", api.UpdateHabit)
				habits.DELETE("/:id", api.DeleteHabit)

				habits.GET("/entries/user/:userId", api.GetUserHabitEntries)
				habits.POST("/entries/update/:id", api.UpdateHabitEntry)
				habits.PUT("/entries/update/image/:id", api.UpdateHabitEntryImage)
				habits.GET("/progress/user/:userId", api.GetUserProgress)
			}

			tribes := auth.Group("/tribes")
			{
				tribes.POST("", api.CreateTribe)
				tribes.GET("/user/:userId", api.GetTribe)
				tribes.POST("/join", api.JoinTribe)
			}

			users := auth.Group("/users")
			{
				users.GET("/:id", api.GetUser)
				users.PUT("", api.UpdateUser)
			}

			uploads := auth.Group("/uploads")
			{
				uploads.POST("/avatar", api.UploadAvatar)
				uploads.POST("/proof", api.UploadProof)
			}
		}
	}

	return r
}
