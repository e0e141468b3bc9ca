package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/habitribe/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrTribeNotFound 在用户不属于任何部落或部落不存在时返回
	ErrTribeNotFound = errors.New("tribe not found")
	// ErrInviteCodeInvalid 当邀请码不属于任何部落时返回
	ErrInviteCodeInvalid = errors.New("invalid invite code")
)

// 邀请码字符集剔除了易混淆字符（0/O、1/I 等），用户需要手动输入
const inviteCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const inviteCodeLength = 6

// TribeService 负责部落的创建、加入与成员视图
type TribeService struct {
	db       *gorm.DB
	progress *ProgressService
}

// TribeInput 定义创建部落时可配置字段
type TribeInput struct {
	Name        string
	Description string
	LeaderID    uint
}

// TribeView 汇总部落基本信息与队长展示信息
type TribeView struct {
	ID          uint
	Name        string
	Description string
	InviteCode  string
	LeaderID    uint
	LeaderName  string
	LeaderImage string
}

// TribeMemberView 是成员列表中的单行：展示信息加全历史完成率
type TribeMemberView struct {
	UserID      uint
	DisplayName string
	Image       string
	Consistency int
}

// NewTribeService 构造 TribeService
func NewTribeService(gdb *gorm.DB, progress *ProgressService) *TribeService {
	return &TribeService{db: gdb, progress: progress}
}

// Create 创建部落并把队长写入为第一个成员，返回生成的邀请码
func (s *TribeService) Create(input TribeInput) (*db.Tribe, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("tribe name is required")
	}
	if input.LeaderID == 0 {
		return nil, fmt.Errorf("tribe leader is required")
	}

	code, err := s.generateInviteCode()
	if err != nil {
		return nil, err
	}

	tribe := db.Tribe{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		LeaderID:    input.LeaderID,
		InviteCode:  code,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tribe).Error; err != nil {
			return err
		}
		return tx.Create(&db.TribeMember{TribeID: tribe.ID, UserID: input.LeaderID}).Error
	}); err != nil {
		return nil, fmt.Errorf("create tribe: %w", err)
	}

	return &tribe, nil
}

// GetForUser 返回用户所在的部落（含队长展示信息）
func (s *TribeService) GetForUser(userID uint) (*TribeView, error) {
	var member db.TribeMember
	if err := s.db.Where("user_id = ?", userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTribeNotFound
		}
		return nil, fmt.Errorf("find tribe member: %w", err)
	}

	var view TribeView
	if err := s.db.Model(&db.Tribe{}).
		Select("tribes.id, tribes.name, tribes.description, tribes.invite_code, tribes.leader_id, users.display_name AS leader_name, users.image AS leader_image").
		Joins("LEFT JOIN users ON users.id = tribes.leader_id").
		Where("tribes.id = ?", member.TribeID).
		First(&view).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTribeNotFound
		}
		return nil, fmt.Errorf("load tribe: %w", err)
	}

	return &view, nil
}

// Join 凭邀请码加入部落。重复加入由复合主键静默吸收，不视为错误。
func (s *TribeService) Join(userID uint, inviteCode string) (*db.Tribe, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	if code == "" {
		return nil, ErrInviteCodeInvalid
	}

	var tribe db.Tribe
	if err := s.db.Where("invite_code = ?", code).First(&tribe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteCodeInvalid
		}
		return nil, fmt.Errorf("find tribe by invite code: %w", err)
	}

	member := db.TribeMember{TribeID: tribe.ID, UserID: userID}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tribe_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&member).Error; err != nil {
		return nil, fmt.Errorf("join tribe: %w", err)
	}

	return &tribe, nil
}

// Members 返回部落成员列表，并为每个成员附上全历史完成率。
// 没有任何打卡记录的成员显示 0，保证排行视图人人有数字。
func (s *TribeService) Members(tribeID uint) ([]TribeMemberView, error) {
	var rows []struct {
		UserID      uint
		DisplayName string
		Image       string
	}

	if err := s.db.Model(&db.TribeMember{}).
		Select("tribe_members.user_id, users.display_name, users.image").
		Joins("JOIN users ON users.id = tribe_members.user_id").
		Where("tribe_members.tribe_id = ?", tribeID).
		Order("tribe_members.joined_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tribe members: %w", err)
	}

	members := make([]TribeMemberView, 0, len(rows))
	for _, row := range rows {
		score, err := s.progress.ConsistencyScore(row.UserID)
		if err != nil {
			return nil, err
		}
		members = append(members, TribeMemberView{
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			Image:       row.Image,
			Consistency: score,
		})
	}

	return members, nil
}

// generateInviteCode 循环生成随机邀请码直到不与现有部落冲突
func (s *TribeService) generateInviteCode() (string, error) {
	for {
		buf := make([]byte, inviteCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}

		code := make([]byte, inviteCodeLength)
		for i, b := range buf {
			code[i] = inviteCodeChars[int(b)%len(inviteCodeChars)]
		}

		var count int64
		if err := s.db.Model(&db.Tribe{}).
			Where("invite_code = ?", string(code)).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}

		if count == 0 {
			return string(code), nil
		}
	}
}
