// Package llm wraps the chat-completions API behind the reasoning-provider
// port. A nil client means no credentials are configured and the agent runs
// unbound.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	contractx "github.com/relaylabs/relay/agent/contract"
)

// History exchanges forwarded to the provider per command.
const historyWindow = 10

// Tool-call rounds allowed before the conversation is forced to a textual
// answer.
const maxToolRounds = 4

// Config is bound from the environment with the LLM prefix.
type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.openai.com/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"600"`
	Temperature        float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0.3"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

var _ contractx.Provider = (*Client)(nil)

// Client implements the reasoning-provider port.
type Client struct {
	api         openaisdk.Client
	model       string
	maxTokens   int64
	temperature float64
	timeout     time.Duration
}

// NewClient builds the provider binding, or nil when no API key is
// configured (the unbound state).
func NewClient(cfg Config) *Client {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		api:         openaisdk.NewClient(opts...),
		model:       strings.TrimSpace(cfg.Model),
		maxTokens:   int64(cfg.MaxCompletionToken),
		temperature: cfg.Temperature,
		timeout:     timeout,
	}
}

// Complete interprets one command, running provider-chosen tool calls
// locally between rounds, and returns the final text plus the tool-call
// trace. Failures are wrapped with the sentinel kinds the fallback
// classifier understands.
func (c *Client) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := c.buildMessages(req)
	tools := buildTools(req.Tools.Specs)

	var trace []contractx.ToolCall
	for round := 0; ; round++ {
		params := openaisdk.ChatCompletionNewParams{
			Model:     shared.ChatModel(c.model),
			Messages:  messages,
			MaxTokens: openaisdk.Int(c.maxTokens),
		}
		if c.temperature >= 0 {
			params.Temperature = openaisdk.Float(c.temperature)
		}
		if len(tools) > 0 && round < maxToolRounds {
			params.Tools = tools
		}

		resp, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return contractx.Completion{}, classifyAPIError(err)
		}
		if len(resp.Choices) == 0 {
			return contractx.Completion{}, fmt.Errorf("%w: empty completion", contractx.ErrProvider)
		}

		msg := resp.Choices[0].Message
		if len(msg.ToolCalls) == 0 || round >= maxToolRounds {
			return contractx.Completion{
				Text:      strings.TrimSpace(msg.Content),
				ToolCalls: trace,
			}, nil
		}

		messages = append(messages, msg.ToParam())
		for _, call := range msg.ToolCalls {
			args := map[string]any{}
			if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					args = map[string]any{}
				}
			}

			result := req.Tools.Execute(ctx, call.Function.Name, args)
			trace = append(trace, contractx.ToolCall{
				Tool:   call.Function.Name,
				Args:   args,
				Result: result,
			})

			payload, err := json.Marshal(result)
			if err != nil {
				payload = []byte(`{"action":"tool_failed","error":"unencodable result"}`)
			}
			messages = append(messages, openaisdk.ToolMessage(string(payload), call.ID))
		}
	}
}

func (c *Client) buildMessages(req contractx.CompletionRequest) []openaisdk.ChatCompletionMessageParamUnion {
	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2+2*historyWindow)
	messages = append(messages, openaisdk.SystemMessage(systemPrompt(req.Tools.Specs)))

	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, entry := range history {
		messages = append(messages, openaisdk.UserMessage(entry.Command))
		if entry.Response != "" {
			messages = append(messages, openaisdk.AssistantMessage(entry.Response))
		}
	}

	command := req.Command
	if len(req.Context) > 0 {
		if ctxJSON, err := json.Marshal(req.Context); err == nil {
			command = fmt.Sprintf("%s\nContext: %s", command, ctxJSON)
		}
	}
	return append(messages, openaisdk.UserMessage(command))
}

func systemPrompt(specs []contractx.ToolSpec) string {
	var b strings.Builder
	b.WriteString("You are a personal assistant that routes user commands to the user's connected services. ")
	b.WriteString("Use the available tools to act; answer with a short confirmation of what was done. ")
	b.WriteString("If no tool fits, say so plainly.")
	if len(specs) > 0 {
		b.WriteString("\nConnected services:")
		for _, spec := range specs {
			b.WriteString("\n- ")
			b.WriteString(spec.Name)
			b.WriteString(": ")
			b.WriteString(spec.Description)
		}
	}
	return b.String()
}

func buildTools(specs []contractx.ToolSpec) []openaisdk.ChatCompletionToolParam {
	tools := make([]openaisdk.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, openaisdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        spec.Name,
				Description: openaisdk.String(spec.Description),
				Parameters:  shared.FunctionParameters(spec.Parameters),
			},
		})
	}
	return tools
}

// classifyAPIError wraps provider errors with the sentinel failure kinds.
// Status codes are authoritative; the message text is the fallback signal.
func classifyAPIError(err error) error {
	var apierr *openaisdk.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 429:
			return fmt.Errorf("%w: %v", contractx.ErrThrottled, err)
		case 401, 403:
			return fmt.Errorf("%w: %v", contractx.ErrUnauthorized, err)
		}
	}
	return fmt.Errorf("%w: %v", contractx.ErrProvider, err)
}
