// Package slack posts operator alerts to an incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"nutripal"
)

const username = "nutripal"

type Client struct {
	webhookURL string
	httpClient nutripal.HTTPClient
}

var _ nutripal.SlackClient = (*Client)(nil)

func NewClient(webhookURL string, httpClient nutripal.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

// PostAlert sends a red attachment with a title and sorted key/value fields.
func (c *Client) PostAlert(ctx context.Context, channel, title string, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attFields := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		attFields = append(attFields, map[string]any{"title": k, "value": fields[k], "short": true})
	}

	return c.post(ctx, map[string]any{
		"channel":  channel,
		"username": username,
		"text":     title,
		"attachments": []map[string]any{{
			"color":  "danger",
			"fields": attFields,
		}},
	})
}

func (c *Client) post(ctx context.Context, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		if d := strings.TrimSpace(string(detail)); d != "" {
			return fmt.Errorf("failed to post message: %s: %s", resp.Status, d)
		}
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}
