package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoiceai/internal/logger"
)

// ChatModel is the completion endpoint the assistant drives. *openai.Client
// satisfies it.
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RetryingModel retries transient completion failures with linear backoff.
type RetryingModel struct {
	model      ChatModel
	maxRetries int
	backoff    time.Duration
	log        zerolog.Logger
}

// NewOpenAIModel returns a go-openai client wrapped in retries.
func NewOpenAIModel(apiKey string, maxRetries int) *RetryingModel {
	return NewRetryingModel(openai.NewClient(apiKey), maxRetries, time.Second)
}

// NewRetryingModel wraps model. maxRetries below 1 means a single attempt.
func NewRetryingModel(model ChatModel, maxRetries int, backoff time.Duration) *RetryingModel {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryingModel{
		model:      model,
		maxRetries: maxRetries,
		backoff:    backoff,
		log:        logger.WithComponent("openai"),
	}
}

// CreateChatCompletion implements ChatModel.
func (m *RetryingModel) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	const op = "CreateChatCompletion"

	var lastErr error
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		resp, err := m.model.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !retryable(err) || attempt == m.maxRetries {
			break
		}
		m.log.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_retries", m.maxRetries).
			Str("model", req.Model).
			Msg("Chat completion failed, retrying")

		select {
		case <-ctx.Done():
			return openai.ChatCompletionResponse{}, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(time.Duration(attempt) * m.backoff):
		}
	}
	return openai.ChatCompletionResponse{}, fmt.Errorf("%s: %w", op, lastErr)
}

// retryable reports whether err is worth another attempt: rate limits,
// server errors and transport failures, but never a cancelled context or a
// rejected request.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return true
}
