package qdrant

import (
	"context"
	"testing"

	"github.com/barekit/folio/pkg/knowledge"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

func TestPointID(t *testing.T) {
	a := PointID("chunk_0")
	if a != PointID("chunk_0") {
		t.Error("Expected stable point id")
	}
	if a == PointID("chunk_1") {
		t.Error("Expected distinct point ids for distinct chunks")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("Expected a UUID, got %q: %v", a, err)
	}
}

func TestToPoint(t *testing.T) {
	c := knowledge.Chunk{
		ID:        "chunk_3",
		Text:      "Project: Portfolio Assistant.",
		Embedding: []float32{0.1, 0.2},
		Metadata:  knowledge.Metadata{Source: "projects", Category: "technical", Section: "portfolio_rag", Timestamp: "ts"},
	}

	p := toPoint(c)
	if p.Id.GetUuid() != PointID("chunk_3") {
		t.Errorf("Unexpected point id %v", p.Id)
	}
	if got := p.Payload[PayloadText].GetStringValue(); got != c.Text {
		t.Errorf("Expected text payload %q, got %q", c.Text, got)
	}
	if got := p.Payload[PayloadSection].GetStringValue(); got != "portfolio_rag" {
		t.Errorf("Expected section payload, got %q", got)
	}
	if got := p.Payload[PayloadChunkID].GetStringValue(); got != "chunk_3" {
		t.Errorf("Expected chunk id payload, got %q", got)
	}
}

type mockCollections struct {
	exists  bool
	deleted int
	created []*qdrant.CreateCollection
	upserts []*qdrant.UpsertPoints
}

func (m *mockCollections) CollectionExists(ctx context.Context, name string) (bool, error) {
	return m.exists, nil
}

func (m *mockCollections) DeleteCollection(ctx context.Context, name string) error {
	m.deleted++
	m.exists = false
	return nil
}

func (m *mockCollections) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	m.created = append(m.created, req)
	m.exists = true
	return nil
}

func (m *mockCollections) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	m.upserts = append(m.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (m *mockCollections) Close() error { return nil }

func TestPublish_ReplacesCollection(t *testing.T) {
	client := &mockCollections{exists: true}
	p := &Publisher{client: client, collectionName: "folio_knowledge"}

	chunks := []knowledge.Chunk{
		{ID: "chunk_0", Embedding: []float32{1, 0, 0}},
		{ID: "chunk_1", Embedding: []float32{0, 1, 0}},
	}
	if err := p.Publish(context.Background(), chunks); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if client.deleted != 1 || len(client.created) != 1 {
		t.Fatalf("Expected one delete and one create, got %d and %d", client.deleted, len(client.created))
	}
	if size := client.created[0].VectorsConfig.GetParams().GetSize(); size != 3 {
		t.Errorf("Expected vector size 3, got %d", size)
	}
	if len(client.upserts) != 1 || len(client.upserts[0].Points) != 2 {
		t.Errorf("Expected both points upserted, got %+v", client.upserts)
	}
}

func TestPublish_EmptyGenerationDropsCollection(t *testing.T) {
	client := &mockCollections{exists: true}
	p := &Publisher{client: client, collectionName: "folio_knowledge"}

	if err := p.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if client.deleted != 1 || client.exists {
		t.Error("Expected the previous generation to be dropped")
	}
	if len(client.created) != 0 || len(client.upserts) != 0 {
		t.Error("Expected nothing to be created for an empty generation")
	}
}
