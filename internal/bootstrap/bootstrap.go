package bootstrap

import (
	"context"
	"fmt"

	"course-assistant/internal/config"
	"course-assistant/internal/core/ports"
	"course-assistant/internal/core/tools"
	"course-assistant/internal/core/usecase"
	"course-assistant/internal/infrastructure/chunking"
	"course-assistant/internal/infrastructure/llm/ollama"
	"course-assistant/internal/infrastructure/parser"
	"course-assistant/internal/infrastructure/queue/nats"
	"course-assistant/internal/infrastructure/repository/postgres"
	"course-assistant/internal/infrastructure/resilience"
	"course-assistant/internal/infrastructure/storage/localfs"
	"course-assistant/internal/infrastructure/vector/qdrant"
	"course-assistant/internal/session"
)

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Catalog  ports.CourseCatalog
	Sessions ports.ConversationStore

	AnswerUC  *usecase.AnswerUseCase
	IngestUC  *usecase.IngestCourseUseCase
	ProcessUC ports.CourseProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewCourseCatalog(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectorDB := qdrant.NewWithExecutor(cfg.QdrantURL, cfg.QdrantCollection, executor)
	chunker := chunking.New(cfg.ChunkMaxWords, cfg.ChunkOverlapWords)
	courseParser := parser.New()
	sessions := session.NewStore(cfg.MaxHistory)

	searchUC := usecase.NewSearchCoursesUseCase(embedder, vectorDB, catalog, cfg.SearchLimit)
	registry, err := tools.NewRegistry(
		tools.NewSearchTool(searchUC, cfg.SearchLimit),
		tools.NewOutlineTool(searchUC, catalog),
	)
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	answerUC := usecase.NewAnswerUseCase(ollamaClient, registry, sessions, cfg.GenMaxTokens)
	ingestUC := usecase.NewIngestCourseUseCase(storage, queue)
	processUC := usecase.NewProcessCourseUseCase(storage, courseParser, chunker, embedder, vectorDB, catalog)

	return &App{
		Config: cfg,

		Queue:    queue,
		Catalog:  catalog,
		Sessions: sessions,

		AnswerUC:  answerUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
