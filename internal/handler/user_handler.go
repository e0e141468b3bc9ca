package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/db"
	"github.com/habitribe/internal/service"
)

type profilePayload struct {
	ID          uint    `json:"id"`
	DisplayName *string `json:"display_name"`
	Image       *string `json:"image"`
}

func userToPayload(user db.User) gin.H {
	return gin.H{
		"id":           user.ID,
		"username":     user.Username,
		"display_name": user.DisplayName,
		"image":        user.Image,
	}
}

// GetUser 返回用户展示信息
func (a *API) GetUser(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	user, err := a.users.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取用户失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// UpdateUser 部分更新用户资料，只写入提供了的字段
func (a *API) UpdateUser(c *gin.Context) {
	var payload profilePayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	if payload.ID == 0 {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	user, err := a.users.UpdateProfile(payload.ID, service.ProfileInput{
		DisplayName: payload.DisplayName,
		Image:       payload.Image,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "用户不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "更新资料失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": userToPayload(*user)})
}
