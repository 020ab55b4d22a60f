package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/domain"
)

// 导出 JSON 的结构，字段顺序即输出顺序
type exportDocument struct {
	Profile      exportProfile      `json:"profile"`
	Repositories []exportRepository `json:"repositories"`
	ExportedAt   string             `json:"exported_at"`
}

type exportProfile struct {
	Username     string   `json:"username"`
	Name         string   `json:"name"`
	Bio          *string  `json:"bio"`
	BioLanguage  string   `json:"bio_language"`
	BioSentiment *float64 `json:"bio_sentiment"`
	PublicRepos  int      `json:"public_repos"`
	Followers    int      `json:"followers"`
	Following    int      `json:"following"`
	AvatarURL    string   `json:"avatar_url"`
	LastUpdated  string   `json:"last_updated"`
}

type exportRepository struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Stars       int     `json:"stars"`
	Language    *string `json:"language"`
	HTMLURL     string  `json:"html_url"`
}

// isoTime ISO-8601 (RFC 3339，UTC)
func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Serialize 把已持久化的档案序列化成指定格式
func Serialize(profile *domain.Profile, format domain.ExportFormat, exportedAt time.Time) ([]byte, error) {
	switch format {
	case domain.FormatJSON:
		return serializeJSON(profile, exportedAt)
	case domain.FormatCSV:
		return serializeCSV(profile)
	default:
		return nil, common.NewError(common.ErrCodeInvalidFormat, "不支持的导出格式: "+string(format))
	}
}

func serializeJSON(profile *domain.Profile, exportedAt time.Time) ([]byte, error) {
	doc := exportDocument{
		Profile: exportProfile{
			Username:     profile.Username,
			Name:         profile.Name,
			Bio:          profile.Bio,
			BioLanguage:  profile.BioLanguage,
			BioSentiment: profile.BioSentiment,
			PublicRepos:  profile.PublicRepos,
			Followers:    profile.Followers,
			Following:    profile.Following,
			AvatarURL:    profile.AvatarURL,
			LastUpdated:  isoTime(profile.UpdatedAt),
		},
		Repositories: make([]exportRepository, 0, len(profile.Repositories)),
		ExportedAt:   isoTime(exportedAt),
	}
	for _, r := range profile.Repositories {
		doc.Repositories = append(doc.Repositories, exportRepository{
			Name:        r.Name,
			Description: r.Description,
			Stars:       r.Stars,
			Language:    r.Language,
			HTMLURL:     r.HTMLURL,
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInternal, "JSON 序列化失败", err)
	}
	return data, nil
}

func serializeCSV(profile *domain.Profile) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true

	rows := [][]string{
		{"Profile Data"},
		{"Username", "Name", "Bio", "Repos", "Followers", "Following"},
		{
			profile.Username,
			profile.Name,
			deref(profile.Bio),
			strconv.Itoa(profile.PublicRepos),
			strconv.Itoa(profile.Followers),
			strconv.Itoa(profile.Following),
		},
		{},
		{"Repositories"},
		{"Name", "Description", "Stars", "Language", "URL"},
	}
	for _, r := range profile.Repositories {
		rows = append(rows, []string{
			r.Name,
			deref(r.Description),
			strconv.Itoa(r.Stars),
			deref(r.Language),
			r.HTMLURL,
		})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, common.WrapError(common.ErrCodeInternal, "CSV 序列化失败", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
