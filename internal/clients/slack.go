package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"upbot/pkg/retrier"
)

const (
	slackBaseURL        = "https://slack.com/api"
	slackRequestTimeout = 10 * time.Second
)

// SlackNotifier posts cycle reports to a Slack channel. Notification is
// fire-and-forget for the orchestrator: send failures are logged by the
// caller and never fail the cycle.
type SlackNotifier struct {
	baseURL    string
	token      string
	channel    string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewSlackNotifier creates a notifier for the given bot token and channel.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		baseURL:    slackBaseURL,
		token:      token,
		channel:    channel,
		httpClient: &http.Client{Timeout: slackRequestTimeout},
		retrier: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(time.Second),
		),
	}
}

type slackAPIResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CheckConnection verifies the token against auth.test.
func (n *SlackNotifier) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/auth.test", nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+n.token)

	return n.call(req)
}

// Send posts a text message to the configured channel, retrying
// transient failures.
func (n *SlackNotifier) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{
		"channel": n.channel,
		"text":    text,
	})
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}

	return n.retrier.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/chat.postMessage", bytes.NewReader(payload))
		if err != nil {
			return errors.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+n.token)
		req.Header.Set("Content-Type", "application/json")

		return n.call(req)
	})
}

func (n *SlackNotifier) call(req *http.Request) error {
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "slack request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "read slack response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(ErrUnavailable, "slack returned status %d: %s", resp.StatusCode, string(body))
	}

	var apiResp slackAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return errors.Wrap(err, "unmarshal slack response")
	}
	if !apiResp.OK {
		return errors.Errorf("slack API error: %s", apiResp.Error)
	}

	return nil
}
