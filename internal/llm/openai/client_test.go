package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/llm"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestReply_SendsChatCompletion(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Your order ships tomorrow.  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Temperature: 0.7}, quiet())
	reply, err := c.Reply(context.Background(), llm.ReplyRequest{Message: "Where is my order?", Organization: "Toko Maju"})
	require.NoError(t, err)

	assert.Equal(t, "Your order ships tomorrow.", reply)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 150, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "Toko Maju")
	assert.Equal(t, llm.Message{Role: "user", Content: "Where is my order?"}, got.Messages[1])
}

func TestReply_Errors(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		message string
		handler http.HandlerFunc
		wantErr error
		wantMsg string
	}{
		{name: "empty message", key: "k", message: " ", wantErr: common.ErrInvalidInput},
		{name: "no api key", key: "", message: "hi", wantErr: common.ErrUnavailable},
		{
			name: "provider error", key: "k", message: "hi",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
			},
			wantErr: common.ErrUnavailable,
			wantMsg: "Incorrect API key provided",
		},
		{
			name: "no choices", key: "k", message: "hi",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			wantErr: common.ErrUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			h := tt.handler
			if h == nil {
				h = func(http.ResponseWriter, *http.Request) { t.Error("unexpected upstream call") }
			}
			srv := httptest.NewServer(h)
			defer srv.Close()

			c := NewClient(Config{APIKey: tt.key, BaseURL: srv.URL}, quiet())
			_, err := c.Reply(context.Background(), llm.ReplyRequest{Message: tt.message})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
