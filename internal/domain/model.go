package domain

import (
	"strings"
	"time"
)

// Profile 代表一个经过归一化和增强的 GitHub 用户档案
// 每个 username 在库中至多一条
type Profile struct {
	ID       uint    `json:"-" gorm:"primaryKey"`
	Username string  `json:"username" gorm:"size:80;uniqueIndex;not null"` // 大小写以 API 返回为准
	Name     string  `json:"name" gorm:"size:120"`
	Bio      *string `json:"bio" gorm:"type:text"`

	// --- 增强字段：由 bio 推导 ---

	// 语言代码，或者哨兵值 "N/A" / "Unknown"
	BioLanguage string `json:"bio_language" gorm:"size:20"`
	// 情感极性 [-1, 1]，bio 为空时为 nil
	BioSentiment *float64 `json:"bio_sentiment"`

	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	AvatarURL   string `json:"avatar_url" gorm:"size:255"`

	// 时间戳由存储层显式写入，不使用 GORM 的自动时间
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Repositories []Repository `json:"top_repos" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
	Exports      []DataExport `json:"-" gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE"`
}

func (Profile) TableName() string {
	return "github_profiles"
}

// HasBio bio 去掉空白后是否还有内容
func (p *Profile) HasBio() bool {
	return !IsBlank(p.Bio)
}

// Repository 是某次构建时的仓库快照，整体替换，不做合并
type Repository struct {
	ID          uint    `json:"-" gorm:"primaryKey"`
	ProfileID   uint    `json:"-" gorm:"index;not null"`
	Position    int     `json:"-" gorm:"not null"` // 0 开始的排名
	Name        string  `json:"name" gorm:"size:120;not null"`
	Description *string `json:"description" gorm:"type:text"`
	Stars       int     `json:"stars"`
	Language    *string `json:"language" gorm:"size:50"`
	HTMLURL     string  `json:"html_url" gorm:"column:html_url;size:255"`
}

func (Repository) TableName() string {
	return "repositories"
}

// DataExport 导出审计记录，只写不读
type DataExport struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProfileID uint      `json:"profile_id" gorm:"index;not null"`
	Format    string    `json:"format" gorm:"size:10;not null"`
	FilePath  string    `json:"file_path" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime:false"`
}

func (DataExport) TableName() string {
	return "data_exports"
}

// IsBlank nil 或只有空白字符
func IsBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
