package postgres

import (
	"context"
	"fmt"

	"github.com/barekit/folio/pkg/knowledge"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Publisher mirrors a knowledge-base generation into a pgvector table.
type Publisher struct {
	db *gorm.DB
}

// ChunkModel represents the database schema for a chunk.
type ChunkModel struct {
	ID        string `gorm:"primaryKey"`
	Text      string
	Source    string `gorm:"index"`
	Category  string
	Section   string
	Timestamp string
	Embedding pgvector.Vector `gorm:"type:vector"`
}

// TableName overrides the table name.
func (ChunkModel) TableName() string {
	return "knowledge_chunks"
}

// New creates a new Publisher.
func New(dsn string) (*Publisher, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Enable pgvector extension
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(&ChunkModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Publisher{db: db}, nil
}

// Publish replaces every stored row with chunks in one transaction.
func (p *Publisher) Publish(ctx context.Context, chunks []knowledge.Chunk) error {
	models := make([]ChunkModel, len(chunks))
	for i, c := range chunks {
		models[i] = toModel(c)
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ChunkModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear previous generation: %w", err)
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, 100).Error
	})
}

func toModel(c knowledge.Chunk) ChunkModel {
	return ChunkModel{
		ID:        c.ID,
		Text:      c.Text,
		Source:    c.Metadata.Source,
		Category:  c.Metadata.Category,
		Section:   c.Metadata.Section,
		Timestamp: c.Metadata.Timestamp,
		Embedding: pgvector.NewVector(c.Embedding),
	}
}

// Close closes the underlying connection pool.
func (p *Publisher) Close() error {
	db, err := p.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
