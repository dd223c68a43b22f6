package postgres

import (
	"reflect"
	"testing"

	"github.com/barekit/folio/pkg/knowledge"
)

func TestToModel(t *testing.T) {
	c := knowledge.Chunk{
		ID:        "chunk_1",
		Text:      "Education: Dual Degree",
		Embedding: []float32{0.25, -0.5},
		Metadata:  knowledge.Metadata{Source: "education", Category: "academic", Section: "degree", Timestamp: "ts"},
	}

	m := toModel(c)
	if m.ID != "chunk_1" || m.Source != "education" || m.Section != "degree" || m.Timestamp != "ts" {
		t.Errorf("Unexpected model %+v", m)
	}
	if !reflect.DeepEqual(m.Embedding.Slice(), c.Embedding) {
		t.Errorf("Expected embedding %v, got %v", c.Embedding, m.Embedding.Slice())
	}
}
