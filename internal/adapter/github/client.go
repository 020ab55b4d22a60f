package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/config"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"
)

const (
	acceptHeader = "application/vnd.github+json"
	reposPerPage = 100 // 只取第一页
)

// Client 实现了 port.GitHubClient 接口
// token 按调用传入，每次调用构造一个 go-github 客户端
type Client struct {
	baseURL   *url.URL
	timeout   time.Duration
	transport http.RoundTripper
	logger    *log.Logger
}

// NewClient 初始化 GitHub 客户端
func NewClient(cfg config.GitHubConfig, logger *log.Logger) (*Client, error) {
	raw := cfg.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("解析 GitHub base_url 失败: %w", err)
	}
	if logger == nil {
		logger = common.NopLogger()
	}

	return &Client{
		baseURL:   baseURL,
		timeout:   cfg.Timeout,
		transport: http.DefaultTransport,
		logger:    logger.With("component", "github"),
	}, nil
}

// api 构造带超时的 go-github 客户端
// token 为空时匿名访问 (限制 60 次/小时)，不会带 Authorization 头
func (c *Client) api(token string) *github.Client {
	base := &http.Client{
		Transport: &acceptTransport{next: c.transport},
		Timeout:   c.timeout,
	}

	httpClient := base
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = c.timeout
	}

	client := github.NewClient(httpClient)
	client.BaseURL = c.baseURL
	return client
}

// FetchUser 获取用户资料，失败时返回分类后的错误
func (c *Client) FetchUser(ctx context.Context, username, token string) (*github.User, error) {
	user, _, err := c.api(token).Users.Get(ctx, username)
	if err != nil {
		classified := classify(err)
		c.logger.Warn("fetch user failed", "username", username, "status", common.StatusOf(classified), "err", err)
		return nil, classified
	}
	return user, nil
}

// FetchRepos 获取用户的公开仓库 (第一页，最多 100 个)
// 任何失败都返回空列表
func (c *Client) FetchRepos(ctx context.Context, username, token string) []*github.Repository {
	opts := &github.RepositoryListOptions{
		ListOptions: github.ListOptions{PerPage: reposPerPage},
	}
	repos, _, err := c.api(token).Repositories.List(ctx, username, opts)
	if err != nil {
		c.logger.Warn("fetch repos failed, continuing without repositories", "username", username, "err", err)
		return []*github.Repository{}
	}
	if repos == nil {
		return []*github.Repository{}
	}
	return repos
}

// classify 把 go-github 的错误归类
//
//	404                      -> NOT_FOUND
//	403 且响应体含 rate limit -> RATE_LIMITED (不区分大小写)
//	其他非 2xx                -> GITHUB_API_ERROR (状态码透传)
//	超时 / 网络错误           -> GITHUB_API_ERROR (504 / 502)
//
// 只看响应体里的标记文本，X-RateLimit-Remaining 不参与判断
func classify(err error) error {
	resp := responseOf(err)
	if resp == nil {
		if isTimeout(err) {
			return common.NewUpstreamError(http.StatusGatewayTimeout, err)
		}
		return common.NewUpstreamError(http.StatusBadGateway, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return common.WrapError(common.ErrCodeNotFound, "GitHub 用户不存在", err)
	case resp.StatusCode == http.StatusForbidden && hasRateLimitMarker(resp):
		return common.WrapError(common.ErrCodeRateLimited, "GitHub API 限流", err)
	default:
		return common.NewUpstreamError(resp.StatusCode, err)
	}
}

// responseOf 取出 go-github 错误里携带的 HTTP 响应
func responseOf(err error) *http.Response {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	var respErr *github.ErrorResponse

	switch {
	case errors.As(err, &rateErr):
		return rateErr.Response
	case errors.As(err, &abuseErr):
		return abuseErr.Response
	case errors.As(err, &respErr):
		return respErr.Response
	default:
		return nil
	}
}

// hasRateLimitMarker go-github 读完响应体后会重新填回，这里读完同样填回
func hasRateLimitMarker(resp *http.Response) bool {
	if resp.Body == nil {
		return false
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(body)), "rate limit")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// acceptTransport 统一 Accept 头
// go-github 默认发送 v3 的媒体类型
type acceptTransport struct {
	next http.RoundTripper
}

func (t *acceptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", acceptHeader)
	return t.next.RoundTrip(r)
}
