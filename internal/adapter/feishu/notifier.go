package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github-profile-miner/internal/common"
	"github-profile-miner/internal/domain"

	"github.com/charmbracelet/log"
)

// Notifier 把档案事件推送到飞书群机器人
type Notifier struct {
	webhookURL string
	profileURL string
	httpClient *http.Client
	logger     *log.Logger
}

// NewNotifier profileURL 是档案页面的前缀，拼上 username 作为卡片按钮链接
func NewNotifier(webhook, profileURL string, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = common.NopLogger()
	}
	return &Notifier{
		webhookURL: webhook,
		profileURL: profileURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "feishu"),
	}
}

// Publish 发送飞书卡片消息 (Schema 2.0)
func (n *Notifier) Publish(ctx context.Context, event domain.Event) error {
	if n.webhookURL == "" {
		return fmt.Errorf("Webhook URL 为空")
	}

	body, err := json.Marshal(n.card(event))
	if err != nil {
		return fmt.Errorf("构造卡片失败: %w", err)
	}

	// 发送请求 (带重试机制)
	err = common.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, postErr := n.httpClient.Do(req)
		if postErr != nil {
			return postErr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("飞书 API 报错: 状态码 %d", resp.StatusCode)
		}
		return nil
	},
		common.WithMaxRetries(3),
		common.WithInitialDelay(500*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}

	n.logger.Debug("card sent", "type", event.Type, "username", event.Username)
	return nil
}

// Close 无需释放资源
func (n *Notifier) Close() error {
	return nil
}

func (n *Notifier) card(event domain.Event) map[string]any {
	title := fmt.Sprintf("档案已更新: %s", event.Username)
	template := "blue"
	content := fmt.Sprintf("**用户:** %s\n**时间:** %s",
		event.Username, event.OccurredAt.Format(time.RFC3339))
	if event.Type == domain.EventProfileExported {
		title = fmt.Sprintf("档案已导出: %s", event.Username)
		template = "green"
		content += fmt.Sprintf("\n**格式:** %s", event.Format)
	}

	elements := []map[string]any{
		{
			"tag":       "markdown",
			"content":   content,
			"text_size": "normal",
		},
	}
	if n.profileURL != "" {
		elements = append(elements, map[string]any{
			"tag": "button",
			"text": map[string]any{
				"tag":     "plain_text",
				"content": "查看档案",
			},
			"type": "primary",
			"behaviors": []map[string]any{
				{
					"type":        "open_url",
					"default_url": n.profileURL + event.Username,
				},
			},
		})
	}

	return map[string]any{
		"msg_type": "interactive",
		"card": map[string]any{
			"schema": "2.0",
			"config": map[string]any{
				"update_multi": true,
			},
			"header": map[string]any{
				"title": map[string]any{
					"tag":     "plain_text",
					"content": title,
				},
				"template": template,
			},
			"body": map[string]any{
				"direction": "vertical",
				"elements":  elements,
			},
		},
	}
}
