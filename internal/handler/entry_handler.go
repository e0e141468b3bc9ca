package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/db"
	"github.com/habitribe/internal/service"
)

type entryView struct {
	HabitID    uint   `json:"habit_id"`
	HabitName  string `json:"habit_name"`
	Icon       string `json:"icon"`
	Progress   int    `json:"progress"`
	Goal       int    `json:"goal"`
	GoalUnit   string `json:"goal_unit"`
	Status     string `json:"status"`
	ProofImage string `json:"proof_image,omitempty"`
	Date       string `json:"date"`
}

type entryUpdatePayload struct {
	Date     string `json:"date"`
	Progress int    `json:"progress"`
}

type entryImagePayload struct {
	Date  string `json:"date"`
	Image string `json:"image"`
}

func entryToPayload(entry db.HabitEntry) gin.H {
	return gin.H{
		"habit_id": entry.HabitID,
		"date":     entry.EntryDate,
		"goal":     entry.Goal,
		"progress": entry.Progress,
		"status":   entry.Status,
	}
}

func handleEntryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrInvalidProgress):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEntryNotFound):
		respondError(c, http.StatusNotFound, "打卡记录不存在")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}

// GetUserHabitEntries 返回用户某天的全部打卡记录，缺失的记录先按需物化。
// date 省略时按 UTC 取"今天"。用户当天没有生效的习惯时返回空集合。
func (a *API) GetUserHabitEntries(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	views, err := a.entries.EntriesForUserDate(userID, c.Query("date"))
	if err != nil {
		handleEntryError(c, err)
		return
	}

	items := make([]entryView, 0, len(views))
	for _, v := range views {
		items = append(items, entryView{
			HabitID:    v.HabitID,
			HabitName:  v.HabitName,
			Icon:       v.Icon,
			Progress:   v.Progress,
			Goal:       v.Goal,
			GoalUnit:   v.GoalUnit,
			Status:     v.Status,
			ProofImage: v.ProofImage,
			Date:       v.EntryDate,
		})
	}

	c.JSON(http.StatusOK, gin.H{"entries": items})
}

// UpdateHabitEntry 更新某天的进度，状态在同一次写入中重新推导
func (a *API) UpdateHabitEntry(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload entryUpdatePayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	entry, err := a.entries.UpdateProgress(habitID, payload.Date, payload.Progress)
	if err != nil {
		handleEntryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": entryToPayload(*entry)})
}

// UpdateHabitEntryImage 记录打卡凭证图片
func (a *API) UpdateHabitEntryImage(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload entryImagePayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	entry, err := a.entries.UpdateProofImage(habitID, payload.Date, payload.Image)
	if err != nil {
		handleEntryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": entryToPayload(*entry)})
}

// GetUserProgress 返回用户的进度聚合。
// scope=day 时返回单日平均完成率，当天没有记录时 progress 为 null，
// 调用方必须把"无数据"与 0% 区分开；scope=month 时返回稀疏的逐日序列。
func (a *API) GetUserProgress(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	scope := c.DefaultQuery("scope", "day")
	switch scope {
	case "day":
		date := c.Query("date")
		if date == "" {
			date = a.entries.TodayUTC()
		}

		percent, ok, err := a.progress.DayProgress(userID, date)
		if err != nil {
			handleEntryError(c, err)
			return
		}

		payload := gin.H{"date": date, "progress": nil}
		if ok {
			payload["progress"] = percent
		}
		c.JSON(http.StatusOK, payload)

	case "month":
		month := c.Query("month")
		series, err := a.progress.MonthProgress(userID, month)
		if err != nil {
			if errors.Is(err, service.ErrInvalidMonth) {
				respondError(c, http.StatusBadRequest, err.Error())
				return
			}
			respondError(c, http.StatusInternalServerError, "获取进度失败")
			return
		}
		c.JSON(http.StatusOK, gin.H{"month": month, "days": series})

	default:
		respondError(c, http.StatusBadRequest, "scope 仅支持 day 或 month")
	}
}
