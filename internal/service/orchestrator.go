package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/domain"
	"github.com/holyai/holyai/internal/metrics"
)

// Pipeline steps reported in OrchestrationError and step metrics
const (
	StepEmbed    = "embed"
	StepSearch   = "search"
	StepHistory  = "history"
	StepComplete = "complete"
	StepPersist  = "persist"
)

// DefaultScoreThreshold is the minimum similarity applied when neither the
// configuration nor the caller sets one
const DefaultScoreThreshold = 0.1

// Embedder turns texts into vectors
type Embedder interface {
	Embed(ctx context.Context, texts []string, model string) ([][]float32, error)
}

// Searcher finds passages nearest to a vector
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]domain.RetrievedContext, error)
}

// Completer generates a chat answer
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, model string, temperature *float32) (string, error)
}

// ConversationStore persists conversation turns
type ConversationStore interface {
	FetchHistory(ctx context.Context, userID, conversationID string, limit int) ([]domain.ChatMessage, error)
	PersistTurn(ctx context.Context, userID, question, answer, conversationID string) (string, error)
	Ping(ctx context.Context) error
}

// OrchestratorConfig holds the pipeline defaults
type OrchestratorConfig struct {
	Collection     string
	TopK           int
	ScoreThreshold mo.Option[float64]
	Temperature    float32
	HistoryLimit   int
}

// AnswerOptions overrides the pipeline defaults for one question
type AnswerOptions struct {
	TopK           int
	ScoreThreshold mo.Option[float64]
	EmbedModel     string
	ChatModel      string
}

// Orchestrator runs the retrieval-augmented answer pipeline
type Orchestrator struct {
	cfg       OrchestratorConfig
	embedder  Embedder
	searcher  Searcher
	completer Completer
	store     mo.Option[ConversationStore]
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator creates an orchestrator. The store is optional: without it
// answers carry no history and are not persisted.
func NewOrchestrator(
	cfg OrchestratorConfig,
	embedder Embedder,
	searcher Searcher,
	completer Completer,
	store mo.Option[ConversationStore],
	logger *zap.Logger,
	m *metrics.Metrics,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		cfg.Collection = "data"
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = MaxHistoryMessages
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}

	return &Orchestrator{
		cfg:       cfg,
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		store:     store,
		logger:    logger.Named("orchestrator"),
		metrics:   m,
	}
}

// Answer embeds the question, retrieves context, consults history and asks
// the chat model. The first failing step is returned as an
// *domain.OrchestrationError; store failures are logged and skipped.
func (o *Orchestrator) Answer(ctx context.Context, q domain.Question, opts AnswerOptions) (result *domain.AnswerResult, err error) {
	defer func() {
		contexts := 0
		if result != nil {
			contexts = len(result.Contexts)
		}
		o.metrics.ObserveAnswer(contexts, err)
	}()

	if strings.TrimSpace(q.UserID) == "" {
		return nil, domain.Invalid("user_id is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, domain.Invalid("question is required")
	}

	collection := q.Collection
	if collection == "" {
		collection = o.cfg.Collection
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = o.cfg.TopK
	}
	threshold := opts.ScoreThreshold.OrElse(o.cfg.ScoreThreshold.OrElse(DefaultScoreThreshold))

	log := o.logger.With(zap.String("user_id", q.UserID), zap.String("collection", collection))

	// 1. Embed
	start := time.Now()
	vectors, err := o.embedder.Embed(ctx, []string{q.Text}, opts.EmbedModel)
	o.metrics.ObserveStep(StepEmbed, start)
	if err == nil && len(vectors) == 0 {
		err = &domain.EmbeddingError{Err: errors.New("no embedding returned")}
	}
	if err != nil {
		return nil, &domain.OrchestrationError{Step: StepEmbed, Err: err}
	}
	log.Debug("question embedded", zap.Int("dimensions", len(vectors[0])), zap.Duration("took", time.Since(start)))

	// 2. Search
	start = time.Now()
	contexts, err := o.searcher.Search(ctx, collection, vectors[0], topK, threshold)
	o.metrics.ObserveStep(StepSearch, start)
	if err != nil {
		return nil, &domain.OrchestrationError{Step: StepSearch, Err: err}
	}
	log.Debug("contexts retrieved", zap.Int("count", len(contexts)), zap.Duration("took", time.Since(start)))

	// 3. History
	conversationID := q.ConversationID.OrElse("")
	var history []domain.ChatMessage
	if store, ok := o.store.Get(); ok {
		start = time.Now()
		history, err = store.FetchHistory(ctx, q.UserID, conversationID, o.cfg.HistoryLimit)
		o.metrics.ObserveStep(StepHistory, start)
		if err != nil {
			log.Warn("failed to fetch history", zap.Error(err))
			history = nil
		}
	}

	// 4. Complete
	messages := BuildMessages(q.UserID, q.Text, contexts, history)
	temperature := o.cfg.Temperature
	start = time.Now()
	answer, err := o.completer.Complete(ctx, messages, opts.ChatModel, &temperature)
	o.metrics.ObserveStep(StepComplete, start)
	if err != nil {
		return nil, &domain.OrchestrationError{Step: StepComplete, Err: err}
	}
	log.Debug("answer generated", zap.Int("length", len(answer)), zap.Duration("took", time.Since(start)))

	// 5. Persist
	resultID := q.ConversationID
	if store, ok := o.store.Get(); ok {
		start = time.Now()
		id, err := store.PersistTurn(ctx, q.UserID, q.Text, answer, conversationID)
		o.metrics.ObserveStep(StepPersist, start)
		if err != nil {
			log.Warn("failed to persist conversation", zap.Error(err))
		} else {
			resultID = mo.Some(id)
		}
	}

	if contexts == nil {
		contexts = []domain.RetrievedContext{}
	}
	return &domain.AnswerResult{
		Answer:         answer,
		Contexts:       contexts,
		Messages:       messages,
		ConversationID: resultID,
	}, nil
}

// StoreEnabled reports whether a conversation store is attached
func (o *Orchestrator) StoreEnabled() bool {
	return o.store.IsPresent()
}

// PingStore checks the conversation store. It returns nil when no store is
// attached.
func (o *Orchestrator) PingStore(ctx context.Context) error {
	store, ok := o.store.Get()
	if !ok {
		return nil
	}
	return store.Ping(ctx)
}
