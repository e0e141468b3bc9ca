package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/service"
)

type credentialsPayload struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// Register 处理注册请求
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	user, err := a.users.Register(payload.Username, payload.Password, payload.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			respondError(c, http.StatusConflict, "用户名已被占用")
			return
		}
		respondError(c, http.StatusBadRequest, "注册失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": userToPayload(*user)})
}

// Login 处理登录请求并写入会话
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	user, err := a.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "用户名或密码错误")
			return
		}
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Set("username", user.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// Logout 处理登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AuthRequired 是一个简单的认证中间件
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")
		if userID == nil {
			respondError(c, http.StatusUnauthorized, "未登录")
			c.Abort()
			return
		}
		c.Next()
	}
}
