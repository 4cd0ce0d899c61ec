package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/paperia/internal/common"
	"github.com/joseph-ayodele/paperia/internal/llm"
)

var _ llm.Responder = (*Client)(nil)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
	N           int           `json:"n"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Reply implements llm.Responder using chat/completions.
func (c *Client) Reply(ctx context.Context, req llm.ReplyRequest) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", common.NewAppError("EMPTY_MESSAGE", "No message provided", common.ErrInvalidInput)
	}
	if c.cfg.APIKey == "" {
		return "", common.NewAppError("LLM_NOT_CONFIGURED", "chat completion api key is not set", common.ErrUnavailable)
	}

	rid := uuid.New().String()
	start := time.Now()
	c.log.Info("llm.reply.start", "req_id", rid, "model", c.cfg.Model, "text_len", len(req.Message))

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    llm.BuildMessages(req),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		N:           1,
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.reply.http_error", "req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", common.NewAppError("LLM_REQUEST_FAILED", providerMessage(raw, err), errors.Join(common.ErrUnavailable, err))
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.reply.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.reply.no_choices", "req_id", rid, "raw", string(raw))
		return "", common.NewAppError("LLM_EMPTY_REPLY", "no choices in openai response", common.ErrUnavailable)
	}

	msg := strings.TrimSpace(cc.Choices[0].Message.Content)
	c.log.Info("llm.reply.ok", "req_id", rid, "reply_len", len(msg),
		"elapsed_ms", time.Since(start).Milliseconds())
	return msg, nil
}

// providerMessage prefers the API's own error text over the transport error.
func providerMessage(raw []byte, err error) string {
	var cc chatResponse
	if len(raw) > 0 && json.Unmarshal(raw, &cc) == nil && cc.Error != nil && cc.Error.Message != "" {
		return cc.Error.Message
	}
	return err.Error()
}
