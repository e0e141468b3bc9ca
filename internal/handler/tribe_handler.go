package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type tribePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LeaderID    uint   `json:"leader_id"`
}

type tribeJoinPayload struct {
	UserID     uint   `json:"user_id"`
	InviteCode string `json:"invite_code"`
}

// renderMarkdown 将描述渲染为净化后的 HTML
func renderMarkdown(source string) string {
	if source == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return ""
	}
	return sanitizer.Sanitize(buf.String())
}

// CreateTribe 创建部落并返回邀请码
func (a *API) CreateTribe(c *gin.Context) {
	var payload tribePayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	tribe, err := a.tribes.Create(service.TribeInput{
		Name:        payload.Name,
		Description: payload.Description,
		LeaderID:    payload.LeaderID,
	})
	if err != nil {
		respondError(c, http.StatusBadRequest, "创建部落失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": tribe.InviteCode})
}

// GetTribe 返回用户所在部落及成员完成率列表
func (a *API) GetTribe(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	tribe, err := a.tribes.GetForUser(userID)
	if err != nil {
		if errors.Is(err, service.ErrTribeNotFound) {
			respondError(c, http.StatusNotFound, "用户未加入任何部落")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取部落失败")
		return
	}

	members, err := a.tribes.Members(tribe.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取成员列表失败")
		return
	}

	memberItems := make([]gin.H, 0, len(members))
	for _, member := range members {
		memberItems = append(memberItems, gin.H{
			"user_id":      member.UserID,
			"display_name": member.DisplayName,
			"image":        member.Image,
			"consistency":  member.Consistency,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"id":               tribe.ID,
		"name":             tribe.Name,
		"description":      tribe.Description,
		"description_html": renderMarkdown(tribe.Description),
		"invite_code":      tribe.InviteCode,
		"leader_id":        tribe.LeaderID,
		"leader_name":      tribe.LeaderName,
		"leader_image":     tribe.LeaderImage,
		"members":          memberItems,
	})
}

// JoinTribe 凭邀请码加入部落
func (a *API) JoinTribe(c *gin.Context) {
	var payload tribeJoinPayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	if payload.UserID == 0 {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	tribe, err := a.tribes.Join(payload.UserID, payload.InviteCode)
	if err != nil {
		if errors.Is(err, service.ErrInviteCodeInvalid) {
			respondError(c, http.StatusNotFound, "邀请码无效")
			return
		}
		respondError(c, http.StatusInternalServerError, "加入部落失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          tribe.ID,
		"name":        tribe.Name,
		"invite_code": tribe.InviteCode,
	})
}
