package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/barekit/folio/pkg/config"
	"github.com/barekit/folio/pkg/knowledge/builder"
	"github.com/barekit/folio/pkg/knowledge/openai"
	"github.com/barekit/folio/pkg/knowledge/postgres"
	"github.com/barekit/folio/pkg/knowledge/qdrant"
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
		logger.Error("cannot build knowledge base", "error", err)
		return err
	}

	content, err := builder.LoadContent(cfg.ContentPath)
	if err != nil {
		logger.Error("failed to load content", "path", cfg.ContentPath, "error", err)
		return err
	}

	embedder := openai.NewEmbedder(cfg.OpenAIOptions()...)
	embedder.SetModel(cfg.EmbeddingModel)
	embedder.SetTimeout(cfg.EmbedTimeout)

	publishers, closeAll, err := openPublishers(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	b := builder.New(embedder, builder.WithLogger(logger), builder.WithPublishers(publishers...))

	logger.Info("building knowledge base", "content", cfg.ContentPath)
	chunks, err := b.Build(ctx, content)
	if err != nil {
		logger.Error("failed to build knowledge base", "error", err)
		return err
	}

	if err := builder.WriteFile(cfg.KnowledgeBasePath, chunks); err != nil {
		logger.Error("failed to write knowledge base", "path", cfg.KnowledgeBasePath, "error", err)
		return err
	}
	logger.Info("knowledge base written", "path", cfg.KnowledgeBasePath, "chunks", len(chunks))

	if err := b.Publish(ctx, chunks); err != nil {
		logger.Error("failed to publish knowledge base", "error", err)
		return err
	}
	return nil
}

func openPublishers(cfg *config.Config, logger *slog.Logger) ([]builder.Publisher, func(), error) {
	var publishers []builder.Publisher
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("failed to close publisher", "error", err)
			}
		}
	}

	for _, target := range cfg.Publish {
		switch target {
		case config.PublishQdrant:
			p, err := qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection)
			if err != nil {
				logger.Error("failed to connect to qdrant", "host", cfg.QdrantHost, "error", err)
				closeAll()
				return nil, nil, err
			}
			publishers = append(publishers, p)
			closers = append(closers, p.Close)
		case config.PublishPostgres:
			if cfg.PostgresDSN == "" {
				err := &config.ConfigurationError{Key: config.KeyPostgresDSN}
				logger.Error("cannot publish to postgres", "error", err)
				closeAll()
				return nil, nil, err
			}
			p, err := postgres.New(cfg.PostgresDSN)
			if err != nil {
				logger.Error("failed to connect to postgres", "error", err)
				closeAll()
				return nil, nil, err
			}
			publishers = append(publishers, p)
			closers = append(closers, p.Close)
		}
		logger.Info("publishing enabled", "target", target)
	}

	return publishers, closeAll, nil
}
