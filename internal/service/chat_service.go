package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/ai"
	"github.com/askbook/askbook/internal/model"
	appErr "github.com/askbook/askbook/internal/pkg/errors"
	"github.com/askbook/askbook/internal/pkg/logutil"
	"github.com/askbook/askbook/internal/rag"
	"github.com/askbook/askbook/internal/retriever"
)

// failureAnswer is the uniform user-facing message for a total generation
// failure. It never names a provider.
const failureAnswer = "I'm having trouble answering right now. Please try again in a moment."

type ChatServiceConfig struct {
	RelevanceThreshold float64
	TopK               int
	CacheTTL           time.Duration
	CacheMaxEntries    int
}

// conversationContextTurns is how many prior turns of the same
// conversation are fed back into the prompt.
const conversationContextTurns = 3

// ChatStore persists conversation turns. *repo.ChatRepo satisfies it.
type ChatStore interface {
	Save(ctx context.Context, record *model.ChatRecord) error
	ListByUser(ctx context.Context, userID, conversationID string, limit, offset int) ([]model.ChatRecord, error)
	RecentByConversation(ctx context.Context, conversationID string, limit int) ([]model.ChatRecord, error)
}

// AnswerStore is the durable half of the answer cache. *repo.AnswerCacheRepo
// satisfies it.
type AnswerStore interface {
	Get(ctx context.Context, questionHash string) (*model.CachedAnswer, bool, error)
	Save(ctx context.Context, item *model.CachedAnswer) error
	Delete(ctx context.Context, questionHash string) error
}

type cachedEntry struct {
	Answer  string
	Sources []model.Source
	Images  []model.MediaRef
}

// ChatService runs the answer pipeline: retrieve, gate, prompt, dispatch,
// filter, assemble. All state is request-scoped except the read-only
// configuration and the answer cache.
type ChatService struct {
	retriever  retriever.Retriever
	dispatcher *ai.Dispatcher
	prompts    *rag.PromptBuilder
	filter     *rag.IntegrityFilter
	chats      ChatStore
	answers    AnswerStore
	cache      *expirable.LRU[string, cachedEntry]
	cfg        ChatServiceConfig
}

func NewChatService(
	ret retriever.Retriever,
	dispatcher *ai.Dispatcher,
	prompts *rag.PromptBuilder,
	filter *rag.IntegrityFilter,
	chats ChatStore,
	answers AnswerStore,
	cfg ChatServiceConfig,
) *ChatService {
	if cfg.RelevanceThreshold == 0 {
		cfg.RelevanceThreshold = 0.40
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 10000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Hour
	}
	return &ChatService{
		retriever:  ret,
		dispatcher: dispatcher,
		prompts:    prompts,
		filter:     filter,
		chats:      chats,
		answers:    answers,
		cache:      expirable.NewLRU[string, cachedEntry](cfg.CacheMaxEntries, nil, cfg.CacheTTL),
		cfg:        cfg,
	}
}

func (s *ChatService) Chat(ctx context.Context, userID string, req model.ChatRequest) (*model.ChatResponse, error) {
	start := time.Now()
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, appErr.ErrInvalid
	}
	if req.Grade < 0 || req.Grade > 12 {
		return nil, appErr.ErrInvalid
	}
	if req.Provider != "" && !s.dispatcher.HasProvider(req.Provider) {
		return nil, appErr.ErrInvalid
	}
	if req.Language == "" {
		req.Language = rag.DetectLanguage(message)
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("conversation_id", conversationID))

	hash := QuestionHash(message, req.Grade, req.Subject)
	if cached, ok := s.lookupCache(ctx, hash); ok {
		logger.Info("answer cache hit")
		return &model.ChatResponse{
			Answer:         cached.Answer,
			Sources:        cached.Sources,
			Images:         cached.Images,
			ContentFound:   true,
			ResponseTimeMs: time.Since(start).Milliseconds(),
			ConversationID: conversationID,
			Cached:         true,
		}, nil
	}

	result, err := s.retriever.Retrieve(ctx, message, req.Grade, req.Subject, s.cfg.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("retrieval failed", zap.Error(err))
		result = model.RetrievalResult{}
	}

	decision := rag.EvaluateGate(result, s.cfg.RelevanceThreshold)
	if !decision.Passed {
		logger.Info("relevance gate rejected query",
			zap.String("reason", decision.Reason),
			zap.Float64("best_similarity", decision.BestSimilarity),
		)
		resp := assemble(rag.OutOfScopeAnswer(req.Language), rag.CitationSet{}, false, conversationID, start)
		s.saveHistory(ctx, userID, conversationID, message, req.Language, "", resp)
		return resp, nil
	}

	var history []model.ChatRecord
	if req.ConversationID != "" && s.chats != nil {
		turns, err := s.chats.RecentByConversation(ctx, conversationID, conversationContextTurns)
		if err != nil {
			logger.Warn("conversation history lookup failed", zap.Error(err))
		} else {
			history = turns
		}
	}

	genReq, used := s.prompts.Build(req, history, result)
	citations := rag.CitationsFromChunks(used)

	genResult, attempts, err := s.dispatcher.Dispatch(ctx, req.Provider, genReq.Text())
	if err != nil {
		if errors.Is(err, ai.ErrAllProvidersFailed) {
			logger.Error("generation failed across all providers", zap.Int("attempts", len(attempts)))
			return assemble(failureAnswer, rag.CitationSet{}, false, conversationID, start), nil
		}
		return nil, err
	}

	filtered, contentFound := s.filter.Apply(ctx, genResult.Answer, citations)
	resp := assemble(genResult.Answer, filtered, contentFound, conversationID, start)
	s.saveHistory(ctx, userID, conversationID, message, req.Language, genResult.Provider, resp)
	if contentFound && len(filtered.Sources) > 0 {
		s.storeCache(ctx, hash, message, resp)
	}
	logger.Info("chat answered",
		zap.Bool("content_found", contentFound),
		zap.Int("sources", len(resp.Sources)),
		zap.Int64("elapsed_ms", resp.ResponseTimeMs),
	)
	return resp, nil
}

// assemble packages the terminal response. No decision logic lives here.
func assemble(answer string, citations rag.CitationSet, contentFound bool, conversationID string, start time.Time) *model.ChatResponse {
	sources := citations.Sources
	if sources == nil {
		sources = []model.Source{}
	}
	images := citations.Images
	if images == nil {
		images = []model.MediaRef{}
	}
	return &model.ChatResponse{
		Answer:         answer,
		Sources:        sources,
		Images:         images,
		ContentFound:   contentFound,
		ResponseTimeMs: time.Since(start).Milliseconds(),
		ConversationID: conversationID,
	}
}

func (s *ChatService) History(ctx context.Context, userID, conversationID string, page, perPage int) ([]model.ChatMessage, error) {
	if s.chats == nil {
		return nil, appErr.ErrInternal
	}
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	records, err := s.chats.ListByUser(ctx, userID, conversationID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}
	messages := make([]model.ChatMessage, 0, len(records)*2)
	for _, record := range records {
		var sources []model.Source
		if record.SourcesJSON != "" {
			_ = json.Unmarshal([]byte(record.SourcesJSON), &sources)
		}
		messages = append(messages, model.ChatMessage{
			Role:      "user",
			Content:   record.Question,
			Timestamp: record.Ctime,
		})
		messages = append(messages, model.ChatMessage{
			Role:      "assistant",
			Content:   record.Answer,
			Sources:   sources,
			Timestamp: record.Ctime,
		})
	}
	return messages, nil
}

// Report marks a cached answer as wrong and evicts it so the next ask
// regenerates.
func (s *ChatService) Report(ctx context.Context, questionHash string) error {
	questionHash = strings.TrimSpace(questionHash)
	if questionHash == "" {
		return appErr.ErrInvalid
	}
	s.cache.Remove(questionHash)
	if s.answers != nil {
		if err := s.answers.Delete(ctx, questionHash); err != nil {
			return err
		}
	}
	logutil.GetLogger(ctx).Info("cached answer invalidated", zap.String("question_hash", questionHash))
	return nil
}

func (s *ChatService) lookupCache(ctx context.Context, hash string) (cachedEntry, bool) {
	if entry, ok := s.cache.Get(hash); ok {
		return entry, true
	}
	if s.answers == nil {
		return cachedEntry{}, false
	}
	item, ok, err := s.answers.Get(ctx, hash)
	if err != nil || !ok {
		if err != nil {
			logutil.GetLogger(ctx).Warn("answer cache lookup failed", zap.Error(err))
		}
		return cachedEntry{}, false
	}
	if s.cfg.CacheTTL > 0 && time.Now().UnixMilli()-item.Ctime > s.cfg.CacheTTL.Milliseconds() {
		return cachedEntry{}, false
	}
	var sources []model.Source
	_ = json.Unmarshal([]byte(item.SourcesJSON), &sources)
	images := []model.MediaRef{}
	if item.ImagesJSON != "" {
		_ = json.Unmarshal([]byte(item.ImagesJSON), &images)
	}
	entry := cachedEntry{Answer: item.Answer, Sources: sources, Images: images}
	s.cache.Add(hash, entry)
	return entry, true
}

func (s *ChatService) storeCache(ctx context.Context, hash, question string, resp *model.ChatResponse) {
	entry := cachedEntry{Answer: resp.Answer, Sources: resp.Sources, Images: resp.Images}
	s.cache.Add(hash, entry)
	if s.answers == nil {
		return
	}
	data, err := json.Marshal(resp.Sources)
	if err != nil {
		return
	}
	imagesData, err := json.Marshal(resp.Images)
	if err != nil {
		return
	}
	item := &model.CachedAnswer{
		QuestionHash: hash,
		Question:     question,
		Answer:       resp.Answer,
		SourcesJSON:  string(data),
		ImagesJSON:   string(imagesData),
		Ctime:        time.Now().UnixMilli(),
	}
	if err := s.answers.Save(ctx, item); err != nil {
		logutil.GetLogger(ctx).Warn("answer cache save failed", zap.Error(err))
	}
}

func (s *ChatService) saveHistory(ctx context.Context, userID, conversationID, question, language, provider string, resp *model.ChatResponse) {
	if s.chats == nil {
		return
	}
	data, err := json.Marshal(resp.Sources)
	if err != nil {
		data = []byte("[]")
	}
	record := &model.ChatRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		ConversationID: conversationID,
		Question:       question,
		Answer:         resp.Answer,
		SourcesJSON:    string(data),
		Provider:       provider,
		Language:       language,
		ResponseTimeMs: resp.ResponseTimeMs,
		Ctime:          time.Now().UnixMilli(),
	}
	if err := s.chats.Save(ctx, record); err != nil {
		logutil.GetLogger(ctx).Warn("chat history save failed", zap.Error(err))
	}
}

// QuestionHash keys the answer cache by normalized question plus the
// retrieval filters that shaped the answer.
func QuestionHash(question string, grade int, subject string) string {
	key := fmt.Sprintf("%s|%d|%s", strings.ToLower(strings.TrimSpace(question)), grade, strings.ToLower(strings.TrimSpace(subject)))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
