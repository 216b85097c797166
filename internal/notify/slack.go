package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/autodevhq/autodev/internal/config"
)

// SlackChannel posts a formatted message to a Slack incoming webhook URL
// as a raw HTTP POST. Incoming webhooks only need a JSON body; no SDK.
type SlackChannel struct {
	cfg    config.SlackNotifyConfig
	client *http.Client
}

func NewSlack(cfg config.SlackNotifyConfig) *SlackChannel {
	return &SlackChannel{cfg: cfg, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *SlackChannel) Name() string { return "slack" }
func (s *SlackChannel) IsConfigured() bool { return s.cfg.WebhookURL != "" }

func (s *SlackChannel) Send(ctx context.Context, evt Event) error {
	text := fmt.Sprintf("*%s*\n%s", evt.Title, evt.Body)
	if evt.RepoName != "" {
		text = fmt.Sprintf("[%s] %s", evt.RepoName, text)
	}

	b, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshaling slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req) // #nosec G107 -- URL is a user-configured Slack webhook endpoint
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned %d", resp.StatusCode)
	}
	return nil
}
