package agent

import (
	"log/slog"
	"strings"

	"github.com/nyxhq/nyx/plugin/ai"
	"github.com/nyxhq/nyx/store"
)

// FallbackReplyText is persisted when the model produced no usable text. It is
// never empty: a model turn must always carry content.
const FallbackReplyText = "Desculpe, a IA não conseguiu gerar uma resposta de texto válida."

// ToolInvocation is the model's request to execute a named tool. Ephemeral:
// it lives only within one exchange and is never persisted.
type ToolInvocation struct {
	ID   string
	Name string
	Args map[string]string
	// Ordinal is the tool round within the current exchange, starting at 0.
	Ordinal int
}

// HistoryContents converts stored turns into the ordered content groups a model
// conversation expects, one group per turn. A turn whose image cannot be
// replayed keeps its text; a turn with nothing replayable is skipped with a
// warning rather than aborting the whole replay.
func HistoryContents(msgs []*store.Message) []ai.Content {
	contents := make([]ai.Content, 0, len(msgs))
	for _, msg := range msgs {
		role := ai.RoleUser
		if msg.Role == store.RoleModel {
			role = ai.RoleModel
		}

		parts := make([]ai.Part, 0, 2)
		if msg.HasImage() {
			if strings.HasPrefix(msg.ImageMediaType, "image/") {
				parts = append(parts, ai.InlinePart(msg.ImageMediaType, msg.ImageData))
			} else {
				slog.Warn("skipping history image with unsupported media type",
					slog.Int64("message_id", msg.ID),
					slog.String("media_type", msg.ImageMediaType))
			}
		}
		if msg.Content != "" {
			parts = append(parts, ai.TextPart(msg.Content))
		}
		if len(parts) == 0 {
			slog.Warn("skipping history turn with no replayable content", slog.Int64("message_id", msg.ID))
			continue
		}
		contents = append(contents, ai.Content{Role: role, Parts: parts})
	}
	return contents
}

// DecodeReply inspects the model's structured reply. A function call in the
// first part wins; otherwise the reply's text is returned, substituted with
// FallbackReplyText when blank.
func DecodeReply(reply *ai.Reply) (string, *ToolInvocation) {
	if reply != nil && len(reply.Parts) > 0 && reply.Parts[0].FunctionCall != nil {
		call := reply.Parts[0].FunctionCall
		args := call.Args
		if args == nil {
			args = map[string]string{}
		}
		return "", &ToolInvocation{
			ID:   call.ID,
			Name: call.Name,
			Args: args,
		}
	}

	text := ""
	if reply != nil {
		text = reply.Text()
	}
	if strings.TrimSpace(text) == "" {
		return FallbackReplyText, nil
	}
	return text, nil
}
