package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxhq/nyx/plugin/ai"
	"github.com/nyxhq/nyx/store"
)

func TestHistoryContentsTextRoundTrip(t *testing.T) {
	msgs := []*store.Message{
		{ID: 1, Role: store.RoleUser, Content: "Qual o clima em Formosa?"},
		{ID: 2, Role: store.RoleModel, Content: "Faz 25°C, com céu limpo."},
	}

	contents := HistoryContents(msgs)
	require.Len(t, contents, 2)
	assert.Equal(t, ai.RoleUser, contents[0].Role)
	assert.Equal(t, ai.RoleModel, contents[1].Role)

	// Replaying the text and decoding it back must reproduce it exactly.
	for i, content := range contents {
		require.Len(t, content.Parts, 1)
		reply := &ai.Reply{Parts: content.Parts}
		text, invocation := DecodeReply(reply)
		assert.Nil(t, invocation)
		assert.Equal(t, msgs[i].Content, text)
	}
}

func TestHistoryContentsImageTurn(t *testing.T) {
	msgs := []*store.Message{
		{
			ID:             1,
			Role:           store.RoleUser,
			Content:        "o que tem na foto?",
			ImageData:      []byte{0xff, 0xd8},
			ImageMediaType: "image/jpeg",
		},
	}

	contents := HistoryContents(msgs)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[0].Inline)
	assert.Equal(t, "image/jpeg", contents[0].Parts[0].Inline.MediaType)
	assert.Equal(t, "o que tem na foto?", contents[0].Parts[1].Text)
}

func TestHistoryContentsSkipsUndecodableTurn(t *testing.T) {
	msgs := []*store.Message{
		// Unsupported media type and no text: nothing replayable.
		{ID: 1, Role: store.RoleUser, ImageData: []byte{0x01}, ImageMediaType: "application/octet-stream"},
		{ID: 2, Role: store.RoleModel, Content: "resposta"},
	}

	contents := HistoryContents(msgs)
	require.Len(t, contents, 1)
	assert.Equal(t, "resposta", contents[0].Parts[0].Text)
}

func TestHistoryContentsKeepsTextWhenImageUnsupported(t *testing.T) {
	msgs := []*store.Message{
		{ID: 1, Role: store.RoleUser, Content: "legenda", ImageData: []byte{0x01}, ImageMediaType: "video/mp4"},
	}

	contents := HistoryContents(msgs)
	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 1)
	assert.Equal(t, "legenda", contents[0].Parts[0].Text)
}

func TestDecodeReplyFunctionCallFirst(t *testing.T) {
	reply := &ai.Reply{Parts: []ai.Part{
		ai.FunctionCallPart(&ai.FunctionCall{
			ID:   "call_1",
			Name: "obter_clima",
			Args: map[string]string{"cidade": "Formosa"},
		}),
	}}

	text, invocation := DecodeReply(reply)
	assert.Empty(t, text)
	require.NotNil(t, invocation)
	assert.Equal(t, "obter_clima", invocation.Name)
	assert.Equal(t, "Formosa", invocation.Args["cidade"])
}

func TestDecodeReplyEmptyTextFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		reply *ai.Reply
	}{
		{"nil reply", nil},
		{"no parts", &ai.Reply{}},
		{"blank text", &ai.Reply{Parts: []ai.Part{ai.TextPart("   ")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, invocation := DecodeReply(tt.reply)
			assert.Nil(t, invocation)
			assert.Equal(t, FallbackReplyText, text)
			assert.NotEmpty(t, text)
		})
	}
}

func TestDecodeReplyNilArgsNormalized(t *testing.T) {
	reply := &ai.Reply{Parts: []ai.Part{
		ai.FunctionCallPart(&ai.FunctionCall{Name: "ipinfo"}),
	}}

	_, invocation := DecodeReply(reply)
	require.NotNil(t, invocation)
	require.NotNil(t, invocation.Args)
	assert.Empty(t, invocation.Args)
}
