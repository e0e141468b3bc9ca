package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitribe/internal/db"
	"github.com/habitribe/internal/service"
)

type schedulePayload struct {
	Type string `json:"type,omitempty"`
	Days []int  `json:"days,omitempty"`
}

type habitPayload struct {
	UserID          uint            `json:"user_id"`
	Name            string          `json:"name"`
	Icon            string          `json:"icon"`
	GoalValue       int             `json:"goal_value"`
	GoalUnit        string          `json:"goal_unit"`
	Schedule        schedulePayload `json:"schedule"`
	ReminderEnabled bool            `json:"reminder_enabled"`
	ReminderTime    string          `json:"reminder_time"`
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":               habit.ID,
		"user_id":          habit.UserID,
		"name":             habit.Name,
		"icon":             habit.Icon,
		"goal_value":       habit.GoalValue,
		"goal_unit":        habit.GoalUnit,
		"schedule":         schedulePayload{Type: habit.Schedule.Type, Days: habit.Schedule.Days},
		"reminder_enabled": habit.ReminderEnabled,
		"reminder_time":    habit.ReminderTime,
		"created_at":       habit.CreatedAt.Format(time.RFC3339),
		"updated_at":       habit.UpdatedAt.Format(time.RFC3339),
	}
}

func (a *API) parseHabitInput(c *gin.Context) (service.HabitInput, bool) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求格式错误") {
		return service.HabitInput{}, false
	}

	return service.HabitInput{
		UserID:          payload.UserID,
		Name:            payload.Name,
		Icon:            payload.Icon,
		GoalValue:       payload.GoalValue,
		GoalUnit:        payload.GoalUnit,
		Schedule:        db.Schedule{Type: payload.Schedule.Type, Days: payload.Schedule.Days},
		ReminderEnabled: payload.ReminderEnabled,
		ReminderTime:    payload.ReminderTime,
	}, true
}

func handleHabitError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitInvalidGoal), errors.Is(err, service.ErrHabitInvalidSchedule):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}

// ListHabits 返回指定用户的习惯列表
func (a *API) ListHabits(c *gin.Context) {
	userID, err := parseUintParam(c, "userId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的用户ID")
		return
	}

	habits, err := a.habits.ListByUser(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(id)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	input, ok := a.parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Create(input)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	input, ok := a.parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Update(id, input)
	if err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeleteHabit 删除习惯及其全部打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	if err := a.habits.Delete(id); err != nil {
		handleHabitError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
