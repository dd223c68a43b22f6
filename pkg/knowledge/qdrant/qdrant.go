package qdrant

import (
	"context"
	"fmt"

	"github.com/barekit/folio/pkg/knowledge"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Payload keys written with every point.
const (
	PayloadChunkID   = "chunk_id"
	PayloadText      = "text"
	PayloadSource    = "source"
	PayloadCategory  = "category"
	PayloadSection   = "section"
	PayloadTimestamp = "timestamp"
)

// collectionClient is the part of *qdrant.Client the publisher uses.
type collectionClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	DeleteCollection(ctx context.Context, collectionName string) error
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Close() error
}

// Publisher mirrors a knowledge-base generation into a Qdrant collection.
type Publisher struct {
	client         collectionClient
	collectionName string
}

// New creates a Publisher connected to Qdrant's gRPC endpoint.
func New(host string, port int, collectionName string) (*Publisher, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Publisher{
		client:         client,
		collectionName: collectionName,
	}, nil
}

// Publish replaces the collection with chunks. The collection is recreated
// so vectors of an earlier generation never mix with the new one. An empty
// generation drops the collection, since its vector size is unknown.
func (p *Publisher) Publish(ctx context.Context, chunks []knowledge.Chunk) error {
	if err := p.dropCollection(ctx); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	if err := p.createCollection(ctx, uint64(len(chunks[0].Embedding))); err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = toPoint(c)
	}

	wait := true
	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: p.collectionName,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}

func (p *Publisher) dropCollection(ctx context.Context) error {
	exists, err := p.client.CollectionExists(ctx, p.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := p.client.DeleteCollection(ctx, p.collectionName); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (p *Publisher) createCollection(ctx context.Context, vectorSize uint64) error {
	err := p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: p.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// PointID derives a stable UUID for a chunk id; Qdrant only accepts
// unsigned integers or UUIDs as point ids.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("folio:chunk:"+chunkID)).String()
}

func toPoint(c knowledge.Chunk) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(c.ID)),
		Vectors: qdrant.NewVectors(c.Embedding...),
		Payload: map[string]*qdrant.Value{
			PayloadChunkID:   qdrant.NewValueString(c.ID),
			PayloadText:      qdrant.NewValueString(c.Text),
			PayloadSource:    qdrant.NewValueString(c.Metadata.Source),
			PayloadCategory:  qdrant.NewValueString(c.Metadata.Category),
			PayloadSection:   qdrant.NewValueString(c.Metadata.Section),
			PayloadTimestamp: qdrant.NewValueString(c.Metadata.Timestamp),
		},
	}
}
