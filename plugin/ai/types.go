// Package ai abstracts the hosted model transport behind content parts and a
// narrow ModelClient interface, so the orchestration layer never depends on a
// specific SDK's reply shape.
package ai

// Role values for content groups.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Blob is inline binary content with its media type. Both fields are always
// set together.
type Blob struct {
	MediaType string
	Data      []byte
}

// FunctionCall is the model's request to execute a named tool.
type FunctionCall struct {
	// ID correlates the call with its result within one exchange. It is
	// transport-assigned and never persisted.
	ID   string
	Name string
	Args map[string]string
}

// FunctionResult carries a tool's string payload back to the model.
type FunctionResult struct {
	ID      string
	Name    string
	Content string
}

// Part is one unit within a content group: exactly one field is set.
type Part struct {
	Text           string
	Inline         *Blob
	FunctionCall   *FunctionCall
	FunctionResult *FunctionResult
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// InlinePart creates an inline binary part.
func InlinePart(mediaType string, data []byte) Part {
	return Part{Inline: &Blob{MediaType: mediaType, Data: data}}
}

// FunctionCallPart creates a function-call part.
func FunctionCallPart(call *FunctionCall) Part {
	return Part{FunctionCall: call}
}

// FunctionResultPart creates a function-result part.
func FunctionResultPart(result *FunctionResult) Part {
	return Part{FunctionResult: result}
}

// Content is one role-tagged group of parts, the unit of a conversation
// exchanged with the model.
type Content struct {
	Role  string
	Parts []Part
}

// Reply is the model's structured answer: either the first part is a function
// call, or the parts carry the final text.
type Reply struct {
	Parts []Part
}

// Text concatenates the reply's text parts.
func (r *Reply) Text() string {
	var text string
	for _, part := range r.Parts {
		text += part.Text
	}
	return text
}

// ToolDefinition describes one tool in the manifest sent with each request.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object describing the argument mapping.
	Parameters map[string]any
}
