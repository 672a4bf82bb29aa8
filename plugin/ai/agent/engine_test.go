package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxhq/nyx/plugin/ai"
	"github.com/nyxhq/nyx/store"
)

// fakeStore is an in-memory HistoryStore.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []*store.Message
	listCnt  int
	failNext bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (f *fakeStore) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return nil, errors.New("disk full")
	}
	if err := create.Validate(); err != nil {
		return nil, err
	}
	create.ID = f.nextID
	f.nextID++
	copied := *create
	f.messages = append(f.messages, &copied)
	return create, nil
}

func (f *fakeStore) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCnt++
	list := make([]*store.Message, len(f.messages))
	copy(list, f.messages)
	if find != nil && find.Limit != nil && len(list) > *find.Limit {
		list = list[len(list)-*find.Limit:]
	}
	return list, nil
}

func (f *fakeStore) DeleteAllMessages(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := int64(len(f.messages))
	f.messages = nil
	return count, nil
}

// scriptedModel replies with each step in order; the last step repeats.
type scriptedModel struct {
	mu    sync.Mutex
	steps []func(contents []ai.Content, tools []ai.ToolDefinition) (*ai.Reply, error)
	calls int
}

func (m *scriptedModel) Generate(ctx context.Context, contents []ai.Content, tools []ai.ToolDefinition) (*ai.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	if idx >= len(m.steps) {
		idx = len(m.steps) - 1
	}
	m.calls++
	return m.steps[idx](contents, tools)
}

func textReply(text string) func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error) {
	return func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error) {
		return &ai.Reply{Parts: []ai.Part{ai.TextPart(text)}}, nil
	}
}

func toolReply(name string, args map[string]string) func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error) {
	return func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error) {
		return &ai.Reply{Parts: []ai.Part{ai.FunctionCallPart(&ai.FunctionCall{
			ID:   "call_test",
			Name: name,
			Args: args,
		})}}, nil
	}
}

func TestSendPersistsUserBeforeModelReply(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		textReply("oi, tudo bem?"),
	}}
	engine := NewEngine(st, model, nil)

	out, err := engine.Send(ctx, "olá", nil)
	require.NoError(t, err)
	assert.Equal(t, "oi, tudo bem?", out)

	require.Len(t, st.messages, 2)
	assert.Equal(t, store.RoleUser, st.messages[0].Role)
	assert.Equal(t, store.RoleModel, st.messages[1].Role)
	assert.Less(t, st.messages[0].ID, st.messages[1].ID)
}

func TestSendEmptyInputHasZeroSideEffects(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		textReply("nunca chamado"),
	}}
	engine := NewEngine(st, model, nil)

	_, err := engine.Send(ctx, "   ", nil)
	require.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, st.messages)
	assert.Zero(t, model.calls)
	assert.Zero(t, st.listCnt)
}

func TestSendImageOnlyIsAccepted(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		textReply("é uma foto de um gato"),
	}}
	engine := NewEngine(st, model, nil)

	out, err := engine.Send(ctx, "", &ImageInput{Data: []byte{0xff, 0xd8}, MediaType: "image/jpeg"})
	require.NoError(t, err)
	assert.Equal(t, "é uma foto de um gato", out)
	require.Len(t, st.messages, 2)
	assert.True(t, st.messages[0].HasImage())
}

func TestSendToolCallBound(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()

	var dispatches int
	greedy := NewNativeTool("busca", "busca algo", map[string]any{"type": "object"}, nil,
		func(ctx context.Context, args map[string]string) (string, error) {
			dispatches++
			return "mais resultados", nil
		})
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		toolReply("busca", map[string]string{}),
	}}
	engine := NewEngine(st, model, NewRegistry(greedy))

	out, err := engine.Send(ctx, "pesquise tudo", nil)
	require.NoError(t, err)
	assert.Equal(t, CapitulationText, out)
	assert.Equal(t, MaxToolCalls, dispatches)
	// One initial call plus one per tool round, then the capitulation check.
	assert.Equal(t, MaxToolCalls+1, model.calls)

	require.Len(t, st.messages, 2)
	assert.Equal(t, store.RoleModel, st.messages[1].Role)
	assert.Equal(t, CapitulationText, st.messages[1].Content)
}

func TestSendModelExhaustionPersistsSynthesizedTurn(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error) {
			return nil, &ai.ModelUnavailableError{Candidates: []string{"a", "b"}, LastErr: errors.New("quota exceeded")}
		},
	}}
	engine := NewEngine(st, model, nil)

	out, err := engine.Send(ctx, "olá?", nil)
	require.NoError(t, err)
	assert.Equal(t, ModelFailureText, out)

	// The conversation is never left with a user turn and no reply.
	require.Len(t, st.messages, 2)
	assert.Equal(t, store.RoleUser, st.messages[0].Role)
	assert.Equal(t, store.RoleModel, st.messages[1].Role)
	assert.Equal(t, ModelFailureText, st.messages[1].Content)
}

func TestSendPersistenceFailureAbortsBeforeModel(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	st.failNext = true
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		textReply("nunca chamado"),
	}}
	engine := NewEngine(st, model, nil)

	_, err := engine.Send(ctx, "olá", nil)
	require.Error(t, err)
	assert.Zero(t, model.calls)
	assert.Empty(t, st.messages)
}

func TestSendRebuildsSessionAfterFailedExchange(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	cancelled, cancel := context.WithCancel(ctx)

	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error) {
			cancel()
			return nil, &ai.ModelUnavailableError{LastErr: context.Canceled}
		},
		textReply("recuperado"),
	}}
	engine := NewEngine(st, model, nil)

	_, err := engine.Send(cancelled, "primeira", nil)
	require.Error(t, err)
	listsAfterFailure := st.listCnt

	out, err := engine.Send(ctx, "segunda", nil)
	require.NoError(t, err)
	assert.Equal(t, "recuperado", out)
	// The session was rebuilt from the store, not reused dirty.
	assert.Greater(t, st.listCnt, listsAfterFailure)
}

func TestClearHistoryEmptiesStoreAndSession(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()
	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		textReply("resposta"),
	}}
	engine := NewEngine(st, model, nil)

	_, err := engine.Send(ctx, "olá", nil)
	require.NoError(t, err)

	count, err := engine.ClearHistory(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	history, err := engine.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)
}

// Full scenario: weather question routed through the obter_clima tool.
func TestSendWeatherScenario(t *testing.T) {
	ctx := context.Background()
	st := newFakeStore()

	weather := NewNativeTool(
		"obter_clima",
		"Busca o clima de uma cidade.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cidade": map[string]any{"type": "string"},
			},
		},
		[]string{"cidade"},
		func(ctx context.Context, args map[string]string) (string, error) {
			require.Equal(t, "Formosa", args["cidade"])
			return "A temperatura em Formosa é de 25.0°C, com céu limpo.", nil
		},
	)

	model := &scriptedModel{steps: []func([]ai.Content, []ai.ToolDefinition) (*ai.Reply, error){
		func(contents []ai.Content, tools []ai.ToolDefinition) (*ai.Reply, error) {
			require.NotEmpty(t, tools)
			return toolReply("obter_clima", map[string]string{"cidade": "Formosa"})(contents, tools)
		},
		func(contents []ai.Content, tools []ai.ToolDefinition) (*ai.Reply, error) {
			// The tool result must be in the session as a function-result part.
			last := contents[len(contents)-1]
			require.NotNil(t, last.Parts[0].FunctionResult)
			require.Contains(t, last.Parts[0].FunctionResult.Content, "Formosa")
			return &ai.Reply{Parts: []ai.Part{ai.TextPart("Em Formosa faz 25°C com céu limpo.")}}, nil
		},
	}}

	engine := NewEngine(st, model, NewRegistry(weather))

	out, err := engine.Send(ctx, "Qual o clima em Formosa?", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Contains(t, out, "Formosa")
	assert.False(t, strings.Contains(out, ToolErrPrefix))

	require.Len(t, st.messages, 2)
	assert.Equal(t, "Qual o clima em Formosa?", st.messages[0].Content)
	assert.Contains(t, st.messages[1].Content, "Formosa")
}
