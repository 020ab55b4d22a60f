package port

import (
	"context"

	"github-profile-miner/internal/domain"

	"github.com/google/go-github/v53/github"
)

// GitHubClient (侦察兵): 只读访问 GitHub REST API
// 失败时返回带状态码的 common.AppError，不做重试
type GitHubClient interface {
	// FetchUser GET /users/{username}
	FetchUser(ctx context.Context, username, token string) (*github.User, error)

	// FetchRepos GET /users/{username}/repos?per_page=100
	// 任何非 200 都返回空列表
	FetchRepos(ctx context.Context, username, token string) []*github.Repository
}

// Enricher (鉴定师): 从 bio 推导语言和情感，永不失败
type Enricher interface {
	DetectLanguage(bio *string) domain.LanguageResult

	// Sentiment bio 为空时返回 nil
	Sentiment(bio *string) *float64
}

// ProfileStore (仓库管理员): 按 username 读写档案
type ProfileStore interface {
	// Upsert 在一个事务里写入档案并整体替换其仓库快照
	Upsert(ctx context.Context, profile *domain.Profile) (uint, error)

	// FindByUsername 读取档案及其仓库 (按持久化顺序)
	FindByUsername(ctx context.Context, username string) (*domain.Profile, error)

	// RecordExport 追加一条导出审计记录
	RecordExport(ctx context.Context, export *domain.DataExport) error

	// Delete 删除档案以及它拥有的所有记录
	Delete(ctx context.Context, username string) error
}

// EventPublisher (信使): 发布领域事件，尽力而为
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// ProfileService 对外暴露的用例，HTTP 层和 CLI 调用它
type ProfileService interface {
	BuildProfile(ctx context.Context, username, token string) (*domain.Profile, error)
	ExportProfile(ctx context.Context, username string, format domain.ExportFormat) (*domain.ExportFile, error)
	DeleteProfile(ctx context.Context, username string) error
}
