package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/opencarelabs/clinicore/internal/ai"
	"github.com/opencarelabs/clinicore/internal/coding"
	"github.com/opencarelabs/clinicore/internal/config"
	"github.com/opencarelabs/clinicore/internal/db"
	"github.com/opencarelabs/clinicore/internal/filestore"
	"github.com/opencarelabs/clinicore/internal/handler"
	"github.com/opencarelabs/clinicore/internal/job"
	"github.com/opencarelabs/clinicore/internal/middleware"
	"github.com/opencarelabs/clinicore/internal/repo"
	"github.com/opencarelabs/clinicore/internal/schedule"
	"github.com/opencarelabs/clinicore/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "clinicore",
		Short: "clinicore backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run clinicore server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			dbConn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(dbConn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, dbConn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, dbConn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("file_store", cfg.FileStore.Type),
	)

	docRepo := repo.NewDocumentRepo(dbConn)

	aiProvider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	summarizer := ai.WithRetry(ai.NewCompleter(aiProvider, cfg.AI.ChatModel), cfg.AI.MaxRetries)
	answerer := ai.WithRetry(ai.NewCompleter(aiProvider, cfg.AI.ChatModel), cfg.AI.MaxRetries)
	extractor := ai.WithRetry(ai.NewCompleter(aiProvider, cfg.AI.ChatModel), cfg.AI.MaxRetries)
	embedder := ai.WithEmbedRetry(ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel), cfg.AI.MaxRetries)
	gateway := ai.NewManager(summarizer, answerer, extractor, embedder, ai.ManagerConfig{
		Timeout:       cfg.AI.TimeoutSeconds,
		MaxInputChars: cfg.AI.MaxInputChars,
	})

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	documentService := service.NewDocumentService(docRepo, gateway, files, cfg.AI.EmbedDim)
	ragService := service.NewRagService(docRepo, gateway, cfg.Retrieval.TopK)
	aiService := service.NewAIService(gateway)
	agentService := service.NewAgentService(gateway, coding.NewResolver())
	workflowService := service.NewWorkflowService(aiService, ragService, agentService)

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(documentService),
		LLM:       handler.NewLLMHandler(aiService, ragService),
		Agent:     handler.NewAgentHandler(agentService, workflowService),
		FHIR:      handler.NewFHIRHandler(),
		Workflow:  handler.NewWorkflowHandler(workflowService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Reindex.Enable {
		scheduler := schedule.NewCronScheduler()
		reindexJob := job.NewEmbeddingReindexJob(docRepo, gateway, cfg.Reindex.Batch)
		if err := scheduler.AddJob(reindexJob, cfg.Reindex.Cron); err != nil {
			return fmt.Errorf("schedule reindex job: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
