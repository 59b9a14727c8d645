package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holyai/holyai/internal/domain"
	"github.com/holyai/holyai/internal/metrics"
)

type fakeEmbedder struct {
	calls  int
	texts  [][]string
	model  string
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string, model string) ([][]float32, error) {
	f.calls++
	f.texts = append(f.texts, texts)
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeSearcher struct {
	calls      int
	collection string
	limit      int
	threshold  float64
	results    []domain.RetrievedContext
	err        error
}

func (f *fakeSearcher) Search(_ context.Context, collection string, _ []float32, limit int, threshold float64) ([]domain.RetrievedContext, error) {
	f.calls++
	f.collection = collection
	f.limit = limit
	f.threshold = threshold
	return f.results, f.err
}

type fakeCompleter struct {
	calls       int
	messages    []domain.ChatMessage
	model       string
	temperature *float32
	answer      string
	err         error
}

func (f *fakeCompleter) Complete(_ context.Context, messages []domain.ChatMessage, model string, temperature *float32) (string, error) {
	f.calls++
	f.messages = messages
	f.model = model
	f.temperature = temperature
	return f.answer, f.err
}

type fakeStore struct {
	history     []domain.ChatMessage
	historyErr  error
	persistErr  error
	fetchedBy   string
	persisted   int
	persistedID string
	nextID      string
}

func (f *fakeStore) FetchHistory(_ context.Context, userID, conversationID string, _ int) ([]domain.ChatMessage, error) {
	f.fetchedBy = conversationID
	if conversationID == "" {
		f.fetchedBy = "user:" + userID
	}
	return f.history, f.historyErr
}

func (f *fakeStore) PersistTurn(_ context.Context, _, _, _, conversationID string) (string, error) {
	if f.persistErr != nil {
		return "", f.persistErr
	}
	f.persisted++
	f.persistedID = conversationID
	if conversationID == "" {
		return f.nextID, nil
	}
	return conversationID, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

type fixture struct {
	embedder  *fakeEmbedder
	searcher  *fakeSearcher
	completer *fakeCompleter
}

func newFixture() *fixture {
	return &fixture{
		embedder: &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}},
		searcher: &fakeSearcher{results: []domain.RetrievedContext{
			{Text: "Do your duty without attachment to results.", Score: 0.9123},
			{Text: "Action is better than inaction.", Score: 0.5},
		}},
		completer: &fakeCompleter{answer: "Focus on the effort, not the outcome."},
	}
}

func (f *fixture) orchestrator(store mo.Option[ConversationStore], m *metrics.Metrics) *Orchestrator {
	return NewOrchestrator(OrchestratorConfig{}, f.embedder, f.searcher, f.completer, store, nil, m)
}

func TestAnswer_EndToEnd(t *testing.T) {
	f := newFixture()
	store := &fakeStore{nextID: "conv-1"}
	o := f.orchestrator(mo.Some[ConversationStore](store), nil)

	question := "What does the Gita say about duty?"
	res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: question, Collection: "texts"}, AnswerOptions{TopK: 6})
	require.NoError(t, err)

	assert.Equal(t, "Focus on the effort, not the outcome.", res.Answer)
	assert.Len(t, res.Contexts, 2)
	assert.Equal(t, mo.Some("conv-1"), res.ConversationID)

	require.Equal(t, 1, f.embedder.calls)
	assert.Equal(t, [][]string{{question}}, f.embedder.texts)
	assert.Equal(t, 1, f.searcher.calls)
	assert.Equal(t, "texts", f.searcher.collection)
	assert.Equal(t, 6, f.searcher.limit)
	assert.Equal(t, DefaultScoreThreshold, f.searcher.threshold)
	assert.Equal(t, "user:u1", store.fetchedBy)
	assert.Equal(t, 1, store.persisted)
	assert.Empty(t, store.persistedID)

	require.Len(t, f.completer.messages, 2)
	prompt := f.completer.messages[len(f.completer.messages)-1].Content
	assert.Contains(t, prompt, "<question>"+question+"</question>")
	assert.Contains(t, prompt, "[ctx 1 | score=0.912]\nDo your duty without attachment to results.")
	assert.Contains(t, prompt, "[ctx 2 | score=0.500]\nAction is better than inaction.")
	require.NotNil(t, f.completer.temperature)
	assert.InDelta(t, 0.2, *f.completer.temperature, 1e-6)
}

func TestAnswer_DefaultScoreThreshold(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.1, f.searcher.threshold)

	_, err = o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{
		TopK:           3,
		ScoreThreshold: mo.Some(0.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.searcher.threshold)
	assert.Equal(t, 3, f.searcher.limit)
}

func TestAnswer_DefaultsWhenUnconfigured(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(OrchestratorConfig{}, f.embedder, f.searcher, f.completer, mo.None[ConversationStore](), nil, nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, "data", f.searcher.collection)
	assert.Equal(t, 6, f.searcher.limit)
	assert.Equal(t, 0.1, f.searcher.threshold)
}

func TestAnswer_ConfiguredScoreThreshold(t *testing.T) {
	f := newFixture()
	o := NewOrchestrator(OrchestratorConfig{ScoreThreshold: mo.Some(0.35)}, f.embedder, f.searcher, f.completer, mo.None[ConversationStore](), nil, nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.35, f.searcher.threshold)

	_, err = o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{ScoreThreshold: mo.Some(0.0)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.searcher.threshold)
}

func TestAnswer_PassesModelOverrides(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q", Collection: "gita"}, AnswerOptions{
		EmbedModel: "text-embedding-3-large",
		ChatModel:  "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", f.embedder.model)
	assert.Equal(t, "gpt-4o", f.completer.model)
	assert.Equal(t, "gita", f.searcher.collection)
}

func TestAnswer_StatelessConversationIDIsNull(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	for i := 0; i < 2; i++ {
		res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
		require.NoError(t, err)
		assert.True(t, res.ConversationID.IsAbsent())

		body, err := json.Marshal(res)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"conversation_id":null`)
	}
}

func TestAnswer_StatelessKeepsCallerConversationID(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q", ConversationID: mo.Some("c9")}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, mo.Some("c9"), res.ConversationID)
}

func TestAnswer_UsesConversationHistory(t *testing.T) {
	f := newFixture()
	store := &fakeStore{history: []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: "moderator", Content: "dropped"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	}}
	o := f.orchestrator(mo.Some[ConversationStore](store), nil)

	res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q", ConversationID: mo.Some("c1")}, AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, "c1", store.fetchedBy)
	assert.Equal(t, "c1", store.persistedID)
	assert.Equal(t, mo.Some("c1"), res.ConversationID)
	require.Len(t, f.completer.messages, 4)
	assert.Equal(t, "earlier question", f.completer.messages[1].Content)
	assert.Equal(t, "earlier answer", f.completer.messages[2].Content)
}

func TestAnswer_SearchFailureStopsPipeline(t *testing.T) {
	f := newFixture()
	f.searcher.err = &domain.SearchError{StatusCode: 500, Body: "boom", Err: &domain.UpstreamError{Provider: "qdrant", StatusCode: 500}}
	store := &fakeStore{}
	o := f.orchestrator(mo.Some[ConversationStore](store), nil)

	res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.Error(t, err)
	assert.Nil(t, res)

	var oe *domain.OrchestrationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, StepSearch, oe.Step)
	var se *domain.SearchError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 500, se.StatusCode)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	assert.Zero(t, f.completer.calls)
	assert.Zero(t, store.persisted)
}

func TestAnswer_EmbedFailure(t *testing.T) {
	f := newFixture()
	f.embedder.err = &domain.EmbeddingError{Err: &domain.ConfigError{Key: "OPENAI_API_KEY"}}
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})

	var oe *domain.OrchestrationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, StepEmbed, oe.Step)
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Zero(t, f.searcher.calls)
}

func TestAnswer_CompletionFailure(t *testing.T) {
	f := newFixture()
	f.completer.err = &domain.CompletionError{Err: errors.New("timeout")}
	store := &fakeStore{}
	o := f.orchestrator(mo.Some[ConversationStore](store), nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})

	var oe *domain.OrchestrationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, StepComplete, oe.Step)
	assert.Zero(t, store.persisted)
}

func TestAnswer_EmptySearchStillCompletes(t *testing.T) {
	f := newFixture()
	f.searcher.results = nil
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.completer.calls)
	assert.NotNil(t, res.Contexts)
	assert.Empty(t, res.Contexts)
}

func TestAnswer_StoreFailuresAreSwallowed(t *testing.T) {
	f := newFixture()
	store := &fakeStore{historyErr: errors.New("db down"), persistErr: errors.New("db down")}
	o := f.orchestrator(mo.Some[ConversationStore](store), nil)

	res, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Focus on the effort, not the outcome.", res.Answer)
	assert.True(t, res.ConversationID.IsAbsent())
	assert.Len(t, f.completer.messages, 2)
}

func TestAnswer_RejectsEmptyQuestion(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(mo.None[ConversationStore](), nil)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "  "}, AnswerOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Zero(t, f.embedder.calls)
}

func TestAnswer_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture()
	o := f.orchestrator(mo.None[ConversationStore](), m)

	_, err := o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.NoError(t, err)

	f.searcher.err = errors.New("boom")
	_, err = o.Answer(context.Background(), domain.Question{UserID: "u1", Text: "q"}, AnswerOptions{})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues("error")))
}

func TestPingStore(t *testing.T) {
	f := newFixture()

	stateless := f.orchestrator(mo.None[ConversationStore](), nil)
	assert.False(t, stateless.StoreEnabled())
	assert.NoError(t, stateless.PingStore(context.Background()))

	stateful := f.orchestrator(mo.Some[ConversationStore](&fakeStore{}), nil)
	assert.True(t, stateful.StoreEnabled())
	assert.NoError(t, stateful.PingStore(context.Background()))
}
