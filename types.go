package nutripal

import (
	"context"
	"net/http"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostAlert(ctx context.Context, channel, title string, fields map[string]string) error
}
