package service

import (
	"context"
	"strings"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/domain"
	"github-profile-miner/internal/port"

	"github.com/charmbracelet/log"
)

// defaultPublishTimeout 单个事件发布的总时长上限 (含发布器内部重试)
const defaultPublishTimeout = 2 * time.Second

// ProfileService 串联 抓取 -> 增强 -> 组装 -> 持久化 -> 导出
type ProfileService struct {
	github   port.GitHubClient
	enricher port.Enricher
	store    port.ProfileStore
	events   port.EventPublisher
	logger   *log.Logger
	nowFunc  func() time.Time

	publishTimeout time.Duration
}

// NewProfileService 创建档案服务，events 可以为 nil
func NewProfileService(
	github port.GitHubClient,
	enricher port.Enricher,
	store port.ProfileStore,
	events port.EventPublisher,
	logger *log.Logger,
) *ProfileService {
	if logger == nil {
		logger = common.NopLogger()
	}
	return &ProfileService{
		github:   github,
		enricher: enricher,
		store:    store,
		events:   events,
		logger:   logger.With("component", "service"),
		nowFunc:  time.Now,

		publishTimeout: defaultPublishTimeout,
	}
}

// BuildProfile 抓取并持久化一个用户的档案
// 用户资料获取失败时直接返回，不会请求仓库也不会写库
func (s *ProfileService) BuildProfile(ctx context.Context, username, token string) (*domain.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, common.NewError(common.ErrCodeInvalidInput, "Please enter a username")
	}

	user, err := s.github.FetchUser(ctx, username, token)
	if err != nil {
		return nil, err
	}
	repos := s.github.FetchRepos(ctx, username, token)

	lang := s.enricher.DetectLanguage(user.Bio)
	sentiment := s.enricher.Sentiment(user.Bio)

	profile := AssembleProfile(user, repos, lang, sentiment)
	if profile.Username == "" {
		profile.Username = username
	}

	if _, err := s.store.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("profile built",
		"username", profile.Username,
		"repos", len(profile.Repositories),
		"bio_language", profile.BioLanguage,
	)
	s.publish(ctx, domain.NewEvent(domain.EventProfileBuilt, profile.Username, s.nowFunc()))
	return profile, nil
}

// ExportProfile 导出已持久化的档案
// 审计记录在格式校验之前写入，格式不合法时记录依然保留
func (s *ProfileService) ExportProfile(ctx context.Context, username string, format domain.ExportFormat) (*domain.ExportFile, error) {
	profile, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	filename := domain.ExportFilename(profile.Username, format)
	if err := s.store.RecordExport(ctx, &domain.DataExport{
		ProfileID: profile.ID,
		Format:    string(format),
		FilePath:  filename,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	if !format.Valid() {
		s.logger.Warn("unsupported export format", "username", profile.Username, "format", format)
		return nil, common.NewError(common.ErrCodeInvalidFormat, "不支持的导出格式: "+string(format))
	}

	payload, err := Serialize(profile, format, now)
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(domain.EventProfileExported, profile.Username, now)
	event.Format = string(format)
	s.publish(ctx, event)

	return &domain.ExportFile{
		Filename:    filename,
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

// DeleteProfile 删除档案及其仓库和导出记录
func (s *ProfileService) DeleteProfile(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return common.NewError(common.ErrCodeInvalidInput, "Please enter a username")
	}
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}
	s.logger.Info("profile deleted", "username", username)
	return nil
}

// publish 事件发布失败只记日志，不影响主流程
// 发布不跟随请求取消，但总时长受 publishTimeout 限制
func (s *ProfileService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", "type", event.Type, "username", event.Username, "err", err)
	}
}
