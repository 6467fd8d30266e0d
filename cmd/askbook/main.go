package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/askbook/askbook/internal/ai"
	"github.com/askbook/askbook/internal/config"
	"github.com/askbook/askbook/internal/db"
	"github.com/askbook/askbook/internal/handler"
	"github.com/askbook/askbook/internal/job"
	"github.com/askbook/askbook/internal/pkg/errcode"
	"github.com/askbook/askbook/internal/pkg/logutil"
	"github.com/askbook/askbook/internal/pkg/response"
	"github.com/askbook/askbook/internal/rag"
	"github.com/askbook/askbook/internal/repo"
	"github.com/askbook/askbook/internal/retriever"
	"github.com/askbook/askbook/internal/schedule"
	"github.com/askbook/askbook/internal/service"
)

const cacheCleanupSpec = "17 * * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askbook",
		Short: "askbook textbook answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run askbook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logutil.Init(cfg.LogConfig)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer database.Close()
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildDispatcher(cfg *config.Config) (*ai.Dispatcher, error) {
	entries := make([]ai.DispatchEntry, 0, len(cfg.AI.ProviderOrder))
	for _, name := range cfg.AI.ProviderOrder {
		pcfg := cfg.AI.Providers[name]
		provider, err := ai.NewProvider(name, pcfg.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", name, err)
		}
		entries = append(entries, ai.DispatchEntry{
			Name:      name,
			Generator: ai.NewGenerator(provider, pcfg.Model),
			Timeout:   time.Duration(pcfg.TimeoutMs) * time.Millisecond,
		})
	}
	return ai.NewDispatcher(entries), nil
}

func runServer(cfg *config.Config, database *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.Strings("provider_order", cfg.AI.ProviderOrder),
		zap.Float64("relevance_threshold", cfg.RAG.RelevanceThreshold),
	)

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return err
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.Embedding.Provider, cfg.AI.Embedding.Data)
	if err != nil {
		return fmt.Errorf("init embedding provider: %w", err)
	}
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.Embedding.Model)

	chatRepo := repo.NewChatRepo(database)
	answerRepo := repo.NewAnswerCacheRepo(database)
	cacheTTL := time.Duration(cfg.RAG.CacheTTLHours) * time.Hour

	chatService := service.NewChatService(
		retriever.NewPostgresRetriever(database, embedder),
		dispatcher,
		rag.NewPromptBuilder(cfg.RAG.MaxContextChars),
		rag.NewIntegrityFilter(cfg.RAG.TriggerPhrases),
		chatRepo,
		answerRepo,
		service.ChatServiceConfig{
			RelevanceThreshold: cfg.RAG.RelevanceThreshold,
			TopK:               cfg.RAG.TopK,
			CacheTTL:           cacheTTL,
			CacheMaxEntries:    cfg.RAG.CacheMaxEntries,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewAnswerCacheCleanupJob(answerRepo, cacheTTL), cacheCleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	engine := handler.NewRouter(handler.RouterDeps{
		Chat: handler.NewChatHandler(chatService),
		Health: func(c *gin.Context) {
			if err := database.PingContext(c.Request.Context()); err != nil {
				response.Error(c, http.StatusServiceUnavailable, errcode.ErrInternal, "db unavailable")
				return
			}
			response.Success(c, gin.H{"status": "ok"})
		},
		CORSAllowlist: cfg.CORSAllowlist,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		Handler: engine,
	}
	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
