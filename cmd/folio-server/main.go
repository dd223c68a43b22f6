package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/barekit/folio/pkg/agent"
	"github.com/barekit/folio/pkg/answer"
	"github.com/barekit/folio/pkg/config"
	"github.com/barekit/folio/pkg/knowledge"
	"github.com/barekit/folio/pkg/knowledge/openai"
	llmopenai "github.com/barekit/folio/pkg/llm/openai"
	"github.com/barekit/folio/pkg/memory"
	"github.com/barekit/folio/pkg/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger(config.DefaultLogLevel).Error("failed to load configuration", "error", err)
		return err
	}
	logger := config.NewLogger(cfg.LogLevel)

	if err := cfg.RequireAPIKey(); err != nil {
		logger.Error("cannot start server", "error", err)
		return err
	}

	// 1. Knowledge store, loaded once before traffic
	embedder := openai.NewEmbedder(cfg.OpenAIOptions()...)
	embedder.SetModel(cfg.EmbeddingModel)
	embedder.SetTimeout(cfg.EmbedTimeout)

	store := knowledge.NewStore(embedder, knowledge.WithStoreLogger(logger))
	loader := knowledge.NewLoader(store, cfg.KnowledgeBasePath, knowledge.WithLoaderLogger(logger))
	if _, err := loader.Load(ctx); err != nil {
		logger.Error("failed to load knowledge base", "path", cfg.KnowledgeBasePath, "error", err)
		return err
	}

	// 2. Generation
	provider := llmopenai.New(cfg.OpenAIOptions()...)
	provider.SetModel(cfg.ChatModel)

	genOpts := []answer.Option{answer.WithTimeout(cfg.GenerateTimeout), answer.WithLogger(logger)}
	if cfg.Owner != "" {
		genOpts = append(genOpts, answer.WithOwner(cfg.Owner))
	}
	generator := answer.New(provider, genOpts...)

	// 3. Conversation memory
	mem, err := memory.NewFactory(ctx, cfg.Memory)
	if err != nil {
		logger.Error("failed to initialize memory", "type", cfg.Memory.Type, "error", err)
		return err
	}
	defer mem.Close(context.Background())
	logger.Info("conversation memory ready", "type", cfg.Memory.Type)

	// 4. Agent and HTTP server
	assistant := agent.New(store, generator,
		agent.WithMemory(mem),
		agent.WithFallback(agent.FallbackContext(cfg.Owner)),
		agent.WithLogger(logger),
	)

	srv := server.New(server.Config{
		Agent:     assistant,
		Knowledge: knowledgeStatus{loader: loader, store: store},
		Memory:    mem,
		Logger:    logger,
	})
	if err := srv.ListenAndServe(ctx, cfg.Addr); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}
	return nil
}

type knowledgeStatus struct {
	loader *knowledge.Loader
	store  *knowledge.Store
}

func (k knowledgeStatus) IsInitialized() bool { return k.loader.IsInitialized() }
func (k knowledgeStatus) Len() int            { return k.store.Len() }
