// Package assistant drives the conversation between a user and the model,
// executing the tool calls the model makes on the user's drafts.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"invoiceai/internal/logger"
	"invoiceai/internal/tools"
	"invoiceai/internal/usage"
)

// SystemPrompt steers the model through a drafting conversation.
const SystemPrompt = "You are helping a freelancer manage invoices. You can update invoice drafts or create new ones using tools. " +
	"When creating a new invoice, start by creating the blank draft and then ask for freelancer details. " +
	"Then, ask for client information. Finally, ask for the services provided. Use tools to collect these. " +
	"After creating or updating an invoice, use the appropriate tool to create preview link."

// deferredToolMessage answers tool calls beyond the first in one completion.
const deferredToolMessage = "Not executed: only one tool call runs per step. Call it again if it is still needed."

// Meter gates and records model usage.
type Meter interface {
	Allowed(ctx context.Context, subject usage.Subject) (bool, error)
	RecordTokens(ctx context.Context, subject usage.Subject, tokens int64) error
}

type Config struct {
	Model       string
	MaxSteps    int
	Timeout     time.Duration // zero means no limit beyond the caller's context
	Temperature float32
}

// Message is one entry of the user-visible transcript.
type Message struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// Turn is a request to continue a conversation.
type Turn struct {
	Caller   tools.Caller
	Messages []Message
}

// ToolCall records one executed tool call.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Reply is the outcome of a turn.
type Reply struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls"`
	Steps     int        `json:"steps"`
	Tokens    int64      `json:"tokens"`
}

// Assistant runs conversations. It is safe for concurrent use; each turn gets
// its own tool set.
type Assistant struct {
	model  ChatModel
	tools  tools.Deps
	meter  Meter
	config Config
	log    zerolog.Logger
}

// New creates an assistant. meter may be nil to disable metering.
func New(model ChatModel, toolDeps tools.Deps, meter Meter, config Config) *Assistant {
	if config.MaxSteps < 1 {
		config.MaxSteps = 8
	}
	if config.Model == "" {
		config.Model = openai.GPT4o
	}
	return &Assistant{
		model:  model,
		tools:  toolDeps,
		meter:  meter,
		config: config,
		log:    logger.WithComponent("assistant"),
	}
}

// Run answers the last message of turn. Each model step executes at most one
// tool call; the loop ends on a plain answer, at the step limit or when the
// usage limit is reached.
func (a *Assistant) Run(ctx context.Context, turn Turn) (*Reply, error) {
	const op = "Run"

	if len(turn.Messages) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyConversation)
	}
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(turn.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt})
	for _, m := range turn.Messages {
		if m.Role != openai.ChatMessageRoleUser && m.Role != openai.ChatMessageRoleAssistant {
			return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidRole, m.Role)
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	toolset := tools.New(a.tools, turn.Caller)
	definitions := openAITools(toolset.Definitions())
	subject := usage.Subject{OwnerID: turn.Caller.OwnerID, ConversationID: turn.Caller.ConversationID}

	log := logger.WithOwner(a.log, turn.Caller.OwnerID).With().
		Str("conversation_id", turn.Caller.ConversationID).
		Logger()

	reply := &Reply{ToolCalls: []ToolCall{}}
	for step := 1; step <= a.config.MaxSteps; step++ {
		if err := a.checkUsage(ctx, subject); err != nil {
			return reply, fmt.Errorf("%s: %w", op, err)
		}

		resp, err := a.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:             a.config.Model,
			Messages:          messages,
			Tools:             definitions,
			ParallelToolCalls: false,
			Temperature:       a.config.Temperature,
		})
		if err != nil {
			return reply, fmt.Errorf("%s: model call: %w", op, err)
		}
		reply.Steps = step
		a.recordTokens(ctx, log, subject, reply, resp.Usage.TotalTokens)

		if len(resp.Choices) == 0 {
			return reply, fmt.Errorf("%s: %w", op, ErrNoChoices)
		}
		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 {
			reply.Content = msg.Content
			log.Info().
				Int("steps", step).
				Int("tool_calls", len(reply.ToolCalls)).
				Int64("tokens", reply.Tokens).
				Msg("Assistant turn complete")
			return reply, nil
		}

		messages = append(messages, msg)
		for i, call := range msg.ToolCalls {
			content := deferredToolMessage
			if i == 0 {
				var trace ToolCall
				trace, content = a.execute(ctx, toolset, call)
				reply.ToolCalls = append(reply.ToolCalls, trace)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}

	log.Warn().Int("max_steps", a.config.MaxSteps).Msg("Assistant stopped at step limit")
	return reply, fmt.Errorf("%s: %w after %d steps", op, ErrStepLimit, a.config.MaxSteps)
}

func (a *Assistant) checkUsage(ctx context.Context, subject usage.Subject) error {
	if a.meter == nil {
		return nil
	}
	ok, err := a.meter.Allowed(ctx, subject)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUsageLimit
	}
	return nil
}

func (a *Assistant) recordTokens(ctx context.Context, log zerolog.Logger, subject usage.Subject, reply *Reply, tokens int) {
	reply.Tokens += int64(tokens)
	if a.meter == nil {
		return
	}
	if err := a.meter.RecordTokens(ctx, subject, int64(tokens)); err != nil {
		log.Warn().Err(err).Int("tokens", tokens).Msg("Failed to record token usage")
	}
}

// execute runs one tool call and renders its result for the model.
func (a *Assistant) execute(ctx context.Context, toolset *tools.Toolset, call openai.ToolCall) (ToolCall, string) {
	trace := ToolCall{Name: call.Function.Name, Arguments: json.RawMessage(call.Function.Arguments)}
	if !json.Valid(trace.Arguments) {
		trace.Arguments = nil
	}

	result, err := toolset.Invoke(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
	if err != nil {
		trace.Error = err.Error()
		return trace, errorJSON(err.Error())
	}
	trace.Result = result

	if text, ok := result.(string); ok {
		return trace, text
	}
	out, err := json.Marshal(result)
	if err != nil {
		trace.Error = err.Error()
		return trace, errorJSON("result could not be encoded")
	}
	return trace, string(out)
}

func errorJSON(message string) string {
	out, _ := json.Marshal(map[string]string{"error": message})
	return string(out)
}

func openAITools(defs []tools.Definition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i, d := range defs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return out
}
