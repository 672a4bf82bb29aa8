package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nyxhq/nyx/plugin/ai"
)

// ToolErrPrefix marks a dispatch outcome the model should treat as a tool
// failure. Tool failures are conversational content, not control flow: the
// dispatcher always hands the model something it can reason about.
const ToolErrPrefix = "ERRO_FERRAMENTA:"

// Tool is one external capability the model may invoke. Every tool, regardless
// of domain, normalizes its outcome to a single string.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema for the tool's argument mapping.
	Parameters() map[string]any
	// Required lists argument names the dispatcher validates before execution.
	Required() []string
	Execute(ctx context.Context, args map[string]string) (string, error)
}

// Registry maps tool names to their implementations. Registration happens once
// at startup; the registry is read-only afterwards and safe to share.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, tool := range tools {
		r.tools[tool.Name()] = tool
	}
	return r
}

// Manifest returns the tool definitions advertised to the model, in stable
// name order.
func (r *Registry) Manifest() []ai.ToolDefinition {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]ai.ToolDefinition, 0, len(names))
	for _, name := range names {
		tool := r.tools[name]
		defs = append(defs, ai.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return defs
}

// Dispatch validates and executes one tool invocation, normalizing every
// outcome (including panics) into a string payload. It never returns an error:
// the result string is fed back into the conversation either way.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]string) (output string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("tool panicked",
				slog.String("tool", name),
				slog.Any("panic", recovered))
			output = fmt.Sprintf("%s falha na execução da ferramenta %s: %v", ToolErrPrefix, name, recovered)
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("%s ferramenta desconhecida: %s", ToolErrPrefix, name)
	}

	for _, required := range tool.Required() {
		if args[required] == "" {
			return fmt.Sprintf("%s argumento obrigatório ausente ou vazio: %q na chamada da ferramenta %s", ToolErrPrefix, required, name)
		}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	if err != nil {
		slog.Warn("tool execution failed",
			slog.String("tool", name),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return fmt.Sprintf("%s falha na execução da ferramenta %s: %v", ToolErrPrefix, name, err)
	}

	slog.Debug("tool execution succeeded",
		slog.String("tool", name),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_length", len(result)))
	return result
}

// NativeTool implements Tool with a direct function, for tools declared inline.
type NativeTool struct {
	name        string
	description string
	params      map[string]any
	required    []string
	execute     func(ctx context.Context, args map[string]string) (string, error)
}

// NewNativeTool creates a NativeTool.
func NewNativeTool(
	name string,
	description string,
	params map[string]any,
	required []string,
	execute func(ctx context.Context, args map[string]string) (string, error),
) *NativeTool {
	return &NativeTool{
		name:        name,
		description: description,
		params:      params,
		required:    required,
		execute:     execute,
	}
}

func (t *NativeTool) Name() string               { return t.name }
func (t *NativeTool) Description() string        { return t.description }
func (t *NativeTool) Parameters() map[string]any { return t.params }
func (t *NativeTool) Required() []string         { return t.required }

func (t *NativeTool) Execute(ctx context.Context, args map[string]string) (string, error) {
	return t.execute(ctx, args)
}
