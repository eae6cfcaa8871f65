// Package slack sends scan run summaries to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/scout/internal/triage"
)

const httpTimeout = 10 * time.Second

// Notifier sends run summaries to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a run summary to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, summary *triage.RunSummary) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(summary)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(s *triage.RunSummary) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(s),
			{"type": "divider"},
			fieldsBlock(s),
			{"type": "divider"},
			contextBlock(s),
		},
	}
}

func headerBlock(s *triage.RunSummary) map[string]any {
	emoji := "\U0001f7e2" // green circle
	if s.Distribution.Green == 0 {
		emoji = "\U0001f7e1" // yellow circle
	}
	text := fmt.Sprintf("%s Scan Complete: %d startups triaged", emoji, s.TotalTriaged)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(s *triage.RunSummary) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Fetched:* %d", s.TotalFetched),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Triaged:* %d", s.TotalTriaged),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", s.DurationSeconds),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Spin-offs:* %d", s.Enriched),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Verdicts:* \U0001f7e2 %d / \U0001f7e1 %d / \U0001f534 %d",
				s.Distribution.Green, s.Distribution.Unclear, s.Distribution.Red),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Skipped:* %d", s.Skipped),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(s *triage.RunSummary) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("scout • run %s • %s", s.RunID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}
