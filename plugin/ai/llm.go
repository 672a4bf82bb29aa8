package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ModelClient is the model transport interface the orchestration loop drives.
type ModelClient interface {
	// Generate sends the ordered conversation content plus the tools manifest
	// and returns the model's structured reply.
	Generate(ctx context.Context, contents []Content, tools []ToolDefinition) (*Reply, error)
}

// ModelUnavailableError reports that every model candidate failed.
type ModelUnavailableError struct {
	Candidates []string
	LastErr    error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("all %d model candidates failed: %v", len(e.Candidates), e.LastErr)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.LastErr
}

// LLMConfig holds the model transport configuration.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	// Models is the ordered fallback candidate list. Each candidate is tried
	// fully before the next; never in parallel, first success wins.
	Models       []string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
}

type llmClient struct {
	client *openai.Client
	config LLMConfig
}

// NewModelClient creates a ModelClient backed by an OpenAI-compatible endpoint.
func NewModelClient(cfg LLMConfig) (ModelClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("model API key is required")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("at least one model candidate is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &llmClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Generate tries each model candidate in order. A candidate is attempted
// exactly once and fully; no partial state carries over between candidates.
func (c *llmClient) Generate(ctx context.Context, contents []Content, tools []ToolDefinition) (*Reply, error) {
	messages := c.convertContents(contents)
	openaiTools := convertTools(tools)

	var lastErr error
	for _, model := range c.config.Models {
		reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		reply, err := c.generateOnce(reqCtx, model, messages, openaiTools)
		cancel()
		if err == nil {
			return reply, nil
		}
		lastErr = err
		slog.Warn("model candidate failed",
			slog.String("model", model),
			slog.String("error", err.Error()))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &ModelUnavailableError{Candidates: c.config.Models, LastErr: lastErr}
}

func (c *llmClient) generateOnce(ctx context.Context, model string, messages []openai.ChatCompletionMessage, tools []openai.Tool) (*Reply, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}
	if c.config.MaxTokens > 0 {
		req.MaxTokens = c.config.MaxTokens
	}
	if c.config.Temperature > 0 {
		req.Temperature = c.config.Temperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty chat response")
	}
	return replyFromMessage(resp.Choices[0].Message), nil
}

// convertContents maps content groups onto the wire message shape. Text parts
// map 1:1, inline blobs become image parts, and function call/result parts
// become tool-call and tool messages.
func (c *llmClient) convertContents(contents []Content) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(contents)+1)
	if c.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.config.SystemPrompt,
		})
	}

	for _, content := range contents {
		role := openai.ChatMessageRoleUser
		if content.Role == RoleModel {
			role = openai.ChatMessageRoleAssistant
		}

		var (
			text      string
			imagePart *openai.ChatMessagePart
			toolCalls []openai.ToolCall
		)
		for _, part := range content.Parts {
			switch {
			case part.FunctionResult != nil:
				// A tool result is its own message on the wire.
				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: part.FunctionResult.ID,
					Name:       part.FunctionResult.Name,
					Content:    part.FunctionResult.Content,
				})
			case part.FunctionCall != nil:
				args, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				toolCalls = append(toolCalls, openai.ToolCall{
					ID:   part.FunctionCall.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					},
				})
			case part.Inline != nil:
				imagePart = &openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL: dataURL(part.Inline.MediaType, part.Inline.Data),
					},
				}
			default:
				text += part.Text
			}
		}

		if len(toolCalls) > 0 {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:      openai.ChatMessageRoleAssistant,
				Content:   text,
				ToolCalls: toolCalls,
			})
			continue
		}
		if imagePart != nil {
			multi := []openai.ChatMessagePart{*imagePart}
			if text != "" {
				multi = append(multi, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: text,
				})
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:         role,
				MultiContent: multi,
			})
			continue
		}
		if text != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    role,
				Content: text,
			})
		}
	}
	return messages
}

func replyFromMessage(msg openai.ChatCompletionMessage) *Reply {
	reply := &Reply{}
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		reply.Parts = append(reply.Parts, FunctionCallPart(&FunctionCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: parseArguments(call.Function.Arguments),
		}))
		return reply
	}
	reply.Parts = append(reply.Parts, TextPart(msg.Content))
	return reply
}

// parseArguments flattens the tool-call argument JSON into a string mapping.
// Malformed argument payloads yield an empty mapping; the dispatcher's
// required-argument check turns that into a tool error string for the model.
func parseArguments(raw string) map[string]string {
	args := map[string]string{}
	if raw == "" {
		return args
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		slog.Warn("malformed tool call arguments", slog.String("raw", raw), slog.String("error", err.Error()))
		return args
	}
	for key, value := range decoded {
		switch v := value.(type) {
		case string:
			args[key] = v
		case float64:
			args[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			args[key] = strconv.FormatBool(v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				continue
			}
			args[key] = string(encoded)
		}
	}
	return args
}

func convertTools(tools []ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	converted := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		converted = append(converted, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return converted
}

func dataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
