package builder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/barekit/folio/pkg/knowledge"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestContent(t *testing.T) *Content {
	t.Helper()
	c, err := LoadContent(filepath.Join("testdata", "content.json"))
	if err != nil {
		t.Fatalf("LoadContent failed: %v", err)
	}
	return c
}

func TestChunkContent(t *testing.T) {
	drafts := ChunkContent(loadTestContent(t), "2025-01-01T00:00:00.000Z")

	if len(drafts) != 18 {
		t.Fatalf("Expected 18 drafts, got %d", len(drafts))
	}

	first := drafts[0]
	if !strings.HasPrefix(first.Text, "Jordan Lee is an AI Product Manager with 5.5 years of experience.") {
		t.Errorf("Unexpected personal chunk: %q", first.Text)
	}
	if first.Metadata != (knowledge.Metadata{Source: "personal", Category: "overview", Section: "intro", Timestamp: "2025-01-01T00:00:00.000Z"}) {
		t.Errorf("Unexpected personal metadata: %+v", first.Metadata)
	}

	if drafts[2].Metadata.Section != "Arka_highlight_0" || drafts[3].Metadata.Section != "Arka_highlight_1" {
		t.Errorf("Expected one chunk per highlight, got %q and %q", drafts[2].Metadata.Section, drafts[3].Metadata.Section)
	}
	if !strings.Contains(drafts[4].Text, "from 2020 to Present") {
		t.Errorf("Expected missing end date to read Present, got %q", drafts[4].Text)
	}

	var sections []string
	for _, d := range drafts {
		if d.Metadata.Category == "role_details" {
			sections = append(sections, d.Metadata.Section)
		}
	}
	if !reflect.DeepEqual(sections, []string{"case_study_role_z_strategy", "case_study_role_a_execution"}) {
		t.Errorf("Expected document key order for role details, got %v", sections)
	}

	last := drafts[len(drafts)-1]
	if last.Metadata.Section != "gen_ai" || !strings.Contains(last.Text, "In Progress, expected 2025") {
		t.Errorf("Unexpected certification chunk: %+v", last)
	}
	completed := drafts[len(drafts)-2]
	if completed.Metadata.Section != "machine_learning_specialization" || completed.Metadata.Category != "completed" {
		t.Errorf("Unexpected certification metadata: %+v", completed.Metadata)
	}

	for _, d := range drafts {
		if d.Text == "" {
			t.Errorf("Empty draft text for %+v", d.Metadata)
		}
	}
}

func TestChunkContent_Deterministic(t *testing.T) {
	c := loadTestContent(t)
	a := ChunkContent(c, "ts")
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(a, ChunkContent(c, "ts")) {
			t.Fatal("Expected identical drafts for the same content")
		}
	}
}

type recordingEmbedder struct {
	texts  []string
	failAt int
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	r.texts = append(r.texts, text)
	if r.failAt > 0 && len(r.texts) == r.failAt {
		return nil, &knowledge.EmbeddingError{Op: "request", Err: errors.New("quota exceeded")}
	}
	return []float32{float32(len(r.texts)), 1}, nil
}

func TestBuilder_Build(t *testing.T) {
	e := &recordingEmbedder{}
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	b := New(e, WithDelay(0), WithLogger(discardLogger()), WithClock(func() time.Time { return fixed }))

	chunks, err := b.Build(context.Background(), loadTestContent(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(chunks) != 18 || len(e.texts) != 18 {
		t.Fatalf("Expected 18 chunks and embedding calls, got %d / %d", len(chunks), len(e.texts))
	}

	seen := map[string]bool{}
	for i, c := range chunks {
		if seen[c.ID] {
			t.Errorf("Duplicate id %s", c.ID)
		}
		seen[c.ID] = true
		if c.Text != e.texts[i] {
			t.Errorf("Chunk %d embedded out of order", i)
		}
		if c.Metadata.Timestamp != "2025-03-04T05:06:07.008Z" {
			t.Errorf("Unexpected timestamp %q", c.Metadata.Timestamp)
		}
	}
	if chunks[0].ID != "chunk_0" || chunks[17].ID != "chunk_17" {
		t.Errorf("Unexpected ids %s..%s", chunks[0].ID, chunks[17].ID)
	}
}

func TestBuilder_BuildAbortsOnFailure(t *testing.T) {
	e := &recordingEmbedder{failAt: 3}
	b := New(e, WithDelay(0), WithLogger(discardLogger()))

	chunks, err := b.Build(context.Background(), loadTestContent(t))
	var embedErr *knowledge.EmbeddingError
	if !errors.As(err, &embedErr) {
		t.Fatalf("Expected EmbeddingError, got %v", err)
	}
	if chunks != nil {
		t.Errorf("Expected no partial chunk set, got %d chunks", len(chunks))
	}
	if len(e.texts) != 3 {
		t.Errorf("Expected build to stop at the failing chunk, got %d calls", len(e.texts))
	}
}

type recordingPublisher struct {
	got []knowledge.Chunk
	err error
}

func (p *recordingPublisher) Publish(ctx context.Context, chunks []knowledge.Chunk) error {
	p.got = chunks
	return p.err
}

func TestBuilder_Publish(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("unreachable")}
	chunks := []knowledge.Chunk{{ID: "chunk_0", Text: "x", Embedding: []float32{1}}}

	if err := New(nil, WithPublishers(ok)).Publish(context.Background(), chunks); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(ok.got) != 1 {
		t.Errorf("Expected publisher to receive chunks")
	}

	if err := New(nil, WithPublishers(failing)).Publish(context.Background(), chunks); err == nil {
		t.Fatal("Expected publish error")
	}
}

func TestWriteFile_LoadedByLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "knowledge-base.json")
	chunks := []knowledge.Chunk{
		{ID: "chunk_0", Text: "a", Embedding: []float32{1, 0}, Metadata: knowledge.Metadata{Source: "skills"}},
		{ID: "chunk_1", Text: "b", Embedding: []float32{0, 1}, Metadata: knowledge.Metadata{Source: "education"}},
	}
	if err := WriteFile(path, chunks); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("Expected temp file to be renamed away")
	}

	store := knowledge.NewStore(nil, knowledge.WithStoreLogger(discardLogger()))
	loader := knowledge.NewLoader(store, path, knowledge.WithLoaderLogger(discardLogger()))
	outcome, err := loader.Load(context.Background())
	if err != nil || outcome != knowledge.LoadLoaded {
		t.Fatalf("Expected loaded, got %v (%v)", outcome, err)
	}
	if !reflect.DeepEqual(store.Chunks(), chunks) {
		t.Errorf("Loaded chunks differ from written chunks")
	}
}
