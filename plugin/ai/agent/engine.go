package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/nyxhq/nyx/plugin/ai"
	"github.com/nyxhq/nyx/store"
)

const (
	// MaxToolCalls bounds the number of tool dispatches within one exchange.
	// Without a hard bound a misbehaving model/tool pair could loop
	// indefinitely, so reaching it is a defined terminal outcome, not an error.
	MaxToolCalls = 5

	// ContextLimit is how many of the most recent turns are replayed into the
	// live session.
	ContextLimit = 100
)

// CapitulationText is the final text substituted when the model still wants a
// tool after MaxToolCalls dispatches.
const CapitulationText = "Desculpe, não foi possível gerar uma resposta clara após várias chamadas de ferramentas."

// ModelFailureText is the synthesized model turn persisted when every model
// candidate failed. The user's turn is already persisted at that point; this
// keeps the stored conversation complete enough to resume.
const ModelFailureText = "Desculpe, ocorreu um erro ao gerar a resposta. Tente novamente em alguns instantes."

// ErrEmptyMessage is returned when a turn request carries neither text nor
// image. Rejected before any persistence or model call.
var ErrEmptyMessage = errors.New("empty message: text or image required")

// HistoryStore is the persistence contract the engine drives.
type HistoryStore interface {
	CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error)
	ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error)
	DeleteAllMessages(ctx context.Context) (int64, error)
}

// ImageInput is one inline image attached to a turn request.
type ImageInput struct {
	Data      []byte
	MediaType string
}

// Engine drives one user turn to completion: persist the user turn, exchange
// content with the model, execute at most MaxToolCalls tool rounds, and persist
// the final text. One engine owns one conversation; exchanges never interleave.
type Engine struct {
	store    HistoryStore
	model    ai.ModelClient
	registry *Registry

	// sem serializes exchanges: the session's ordered history would become
	// inconsistent if two tool-call loops interleaved their sends.
	sem          *semaphore.Weighted
	session      *Session
	sessionValid bool
}

// NewEngine creates an engine. The session is rebuilt from the store on the
// first exchange.
func NewEngine(historyStore HistoryStore, model ai.ModelClient, registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		store:    historyStore,
		model:    model,
		registry: registry,
		sem:      semaphore.NewWeighted(1),
	}
}

// ensureSession replays recent history from the store into the live session.
// Must be called with the exchange semaphore held.
func (e *Engine) ensureSession(ctx context.Context) error {
	if e.sessionValid {
		return nil
	}
	limit := ContextLimit
	msgs, err := e.store.ListMessages(ctx, &store.FindMessage{Limit: &limit})
	if err != nil {
		return errors.Wrap(err, "failed to load history for session")
	}
	e.session = NewSession(HistoryContents(msgs))
	e.sessionValid = true
	slog.Debug("conversation session rebuilt", slog.Int("turns", e.session.Len()))
	return nil
}

// Send drives one user turn to completion and returns the final model text.
// A blank request returns ErrEmptyMessage with zero side effects. A concurrent
// caller blocks until the in-flight exchange completes.
func (e *Engine) Send(ctx context.Context, text string, image *ImageInput) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == nil {
		return "", ErrEmptyMessage
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", errors.Wrap(err, "exchange admission cancelled")
	}
	defer e.sem.Release(1)

	if err := e.ensureSession(ctx); err != nil {
		return "", err
	}

	requestID := uuid.NewString()
	logger := slog.With(slog.String("request_id", requestID))
	start := time.Now()

	// Persist the user turn before calling the model: a transient model
	// failure must not erase evidence of what the user asked.
	userMsg := &store.Message{Role: store.RoleUser, Content: text}
	if image != nil {
		userMsg.ImageData = image.Data
		userMsg.ImageMediaType = image.MediaType
	}
	if _, err := e.store.CreateMessage(ctx, userMsg); err != nil {
		return "", errors.Wrap(err, "failed to persist user message")
	}

	userParts := make([]ai.Part, 0, 2)
	if image != nil {
		userParts = append(userParts, ai.InlinePart(image.MediaType, image.Data))
	}
	if text != "" {
		userParts = append(userParts, ai.TextPart(text))
	}
	e.session.Append(ai.Content{Role: ai.RoleUser, Parts: userParts})

	finalText, err := e.exchange(ctx, logger)
	if err != nil {
		// The session may hold a dangling tool request; rebuild before reuse.
		e.sessionValid = false
		return "", err
	}

	modelMsg := &store.Message{Role: store.RoleModel, Content: finalText}
	if _, err := e.store.CreateMessage(ctx, modelMsg); err != nil {
		e.sessionValid = false
		return "", errors.Wrap(err, "failed to persist model message")
	}
	e.session.Append(ai.Content{Role: ai.RoleModel, Parts: []ai.Part{ai.TextPart(finalText)}})

	logger.Info("exchange completed",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		slog.Int("response_length", len(finalText)))
	return finalText, nil
}

// exchange runs the model/tool loop until a final text is produced. It returns
// an error only when the exchange cannot yield any model turn (cancellation or
// a persistence failure); model exhaustion yields ModelFailureText instead.
func (e *Engine) exchange(ctx context.Context, logger *slog.Logger) (string, error) {
	manifest := e.registry.Manifest()
	toolCalls := 0

	for {
		reply, err := e.model.Generate(ctx, e.session.Contents(), manifest)
		if err != nil {
			if ctx.Err() != nil {
				return "", errors.Wrap(ctx.Err(), "exchange cancelled")
			}
			var unavailable *ai.ModelUnavailableError
			if errors.As(err, &unavailable) {
				logger.Error("all model candidates exhausted",
					slog.Int("candidates", len(unavailable.Candidates)),
					slog.String("error", unavailable.LastErr.Error()))
				return ModelFailureText, nil
			}
			return "", errors.Wrap(err, "model call failed")
		}

		finalText, invocation := DecodeReply(reply)
		if invocation == nil {
			return finalText, nil
		}

		if toolCalls >= MaxToolCalls {
			logger.Warn("tool call budget exhausted, capitulating",
				slog.String("tool", invocation.Name),
				slog.Int("tool_calls", toolCalls))
			return CapitulationText, nil
		}
		invocation.Ordinal = toolCalls

		logger.Info("model requested tool",
			slog.String("tool", invocation.Name),
			slog.Int("ordinal", invocation.Ordinal),
			slog.Any("args", invocation.Args))

		result := e.registry.Dispatch(ctx, invocation.Name, invocation.Args)

		e.session.Append(ai.Content{Role: ai.RoleModel, Parts: []ai.Part{
			ai.FunctionCallPart(&ai.FunctionCall{ID: invocation.ID, Name: invocation.Name, Args: invocation.Args}),
		}})
		e.session.Append(ai.Content{Role: ai.RoleUser, Parts: []ai.Part{
			ai.FunctionResultPart(&ai.FunctionResult{ID: invocation.ID, Name: invocation.Name, Content: result}),
		}})
		toolCalls++
	}
}

// History returns the full stored conversation, oldest first, for display.
func (e *Engine) History(ctx context.Context) ([]*store.Message, error) {
	return e.store.ListMessages(ctx, &store.FindMessage{})
}

// ClearHistory deletes all stored turns and resets the live session. Returns
// the number of turns removed.
func (e *Engine) ClearHistory(ctx context.Context) (int64, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return 0, errors.Wrap(err, "exchange admission cancelled")
	}
	defer e.sem.Release(1)

	count, err := e.store.DeleteAllMessages(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear history")
	}
	e.session = NewSession(nil)
	e.sessionValid = true
	slog.Info("conversation history cleared", slog.Int64("removed", count))
	return count, nil
}
