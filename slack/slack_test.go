package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"nutripal/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	resp   *http.Response
	err    error
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	if m.doFunc != nil {
		return m.doFunc(req)
	}
	return m.resp, m.err
}

func ok() (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
}

// capture decodes the posted JSON body into dst.
func capture(t *testing.T, dst *map[string]any) *mockDoer {
	return &mockDoer{doFunc: func(req *http.Request) (*http.Response, error) {
		must.Equal(t, http.MethodPost, req.Method)
		must.Equal(t, "application/json", req.Header.Get("Content-Type"))
		must.NoError(t, json.NewDecoder(req.Body).Decode(dst))
		return ok()
	}}
}

func TestNewClient(t *testing.T) {
	webhook := "http://slack.com/webhook"
	must.NotNil(t, slack.NewClient(webhook, &mockDoer{}), "expected non-nil client")
	must.NotNil(t, slack.NewClient(webhook, nil), "nil http client falls back to the default")
}

func TestPostAlertPayload(t *testing.T) {
	var got map[string]any

	err := slack.NewClient("http://example.com/webhook", capture(t, &got)).
		PostAlert(context.Background(), "#ops", "Credential rejected", map[string]string{"provider": "gemini", "credential": "#2"})

	must.NoError(t, err)
	should.Equal(t, "Credential rejected", got["text"])
	atts, isSlice := got["attachments"].([]any)
	must.True(t, isSlice)
	must.Len(t, atts, 1)
	att := atts[0].(map[string]any)
	should.Equal(t, "danger", att["color"])
	fields := att["fields"].([]any)
	must.Len(t, fields, 2)
	should.Equal(t, "credential", fields[0].(map[string]any)["title"])
	should.Equal(t, "provider", fields[1].(map[string]any)["title"])
}

func TestPostAlertStatus(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr string
	}{
		{
			name: "success",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return ok()
			},
		},
		{
			name: "failure status with body",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("invalid_payload"))}, nil
			},
			wantErr: "failed to post message: 400 Bad Request: invalid_payload",
		},
		{
			name: "failure status without body",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found", Body: io.NopCloser(bytes.NewBufferString(""))}, nil
			},
			wantErr: "failed to post message: 404 Not Found",
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: "network error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := slack.NewClient("http://example.com/webhook", &mockDoer{doFunc: tt.doFunc})
			err := client.PostAlert(context.Background(), "#nutripal-ops", "Credential rejected", map[string]string{"provider": "gemini"})
			if tt.wantErr == "" {
				should.NoError(t, err)
				return
			}
			should.EqualError(t, err, tt.wantErr)
		})
	}
}
