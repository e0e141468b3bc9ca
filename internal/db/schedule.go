package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Schedule 描述习惯的重复计划，持久化为 JSON 文本
// Days 为空表示每天都要执行；否则仅在列出的星期（0=周日..6=周六）生效
// Type 仅为兼容历史数据保留（daily/weekly），判定只看 Days 是否存在
type Schedule struct {
	Type string `json:"type,omitempty"`
	Days []int  `json:"days,omitempty"`
}

// IsActiveOn 判断计划在给定日期是否生效。
// 星期按 UTC 计算，避免客户端时区漂移影响"今天"的归属。
func (s Schedule) IsActiveOn(date time.Time) bool {
	if len(s.Days) == 0 {
		return true
	}

	weekday := int(date.UTC().Weekday())
	for _, d := range s.Days {
		if d == weekday {
			return true
		}
	}
	return false
}

// Validate 检查星期下标是否落在 0-6 范围内
func (s Schedule) Validate() error {
	for _, d := range s.Days {
		if d < 0 || d > 6 {
			return fmt.Errorf("invalid weekday index %d", d)
		}
	}
	return nil
}

// Value 实现 driver.Valuer，按 JSON 文本写库
func (s Schedule) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner，从 JSON 文本还原
func (s *Schedule) Scan(value interface{}) error {
	if value == nil {
		*s = Schedule{}
		return nil
	}

	switch v := value.(type) {
	case string:
		return json.Unmarshal([]byte(v), s)
	case []byte:
		return json.Unmarshal(v, s)
	default:
		return errors.New("unsupported schedule column type")
	}
}
