package memory

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/barekit/folio/pkg/llm"
)

func exerciseMemory(t *testing.T, m Memory) {
	t.Helper()
	ctx := context.Background()

	if n, err := m.Count(ctx, "unknown"); err != nil || n != 0 {
		t.Fatalf("Expected zero count for unknown session, got %d, %v", n, err)
	}

	turns := []llm.Message{
		{Role: llm.RoleUser, Content: "What did you build?"},
		{Role: llm.RoleAssistant, Content: "A retrieval assistant."},
		{Role: llm.RoleUser, Content: "Tell me more."},
	}
	for _, msg := range turns {
		if err := m.Save(ctx, "s1", msg); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := m.Save(ctx, "s2", llm.Message{Role: llm.RoleUser, Content: "other"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := m.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("Expected %d messages, got %d", len(turns), len(got))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("Message %d: expected %+v, got %+v", i, turns[i], got[i])
		}
	}

	if n, err := m.Count(ctx, "s1"); err != nil || n != 3 {
		t.Errorf("Expected count 3, got %d, %v", n, err)
	}
	if n, err := m.Count(ctx, "s2"); err != nil || n != 1 {
		t.Errorf("Expected count 1, got %d, %v", n, err)
	}
}

func TestFactory_InMemory(t *testing.T) {
	m, err := NewFactory(context.Background(), Config{Type: TypeInMemory})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	defer m.Close(context.Background())
	exerciseMemory(t, m)
}

func TestFactory_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "memory.db")
	m, err := NewFactory(context.Background(), Config{Type: TypeSQLite, ConnectionString: dsn})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	defer m.Close(context.Background())
	exerciseMemory(t, m)
}

func TestFactory_Unsupported(t *testing.T) {
	if _, err := NewFactory(context.Background(), Config{Type: "cassandra"}); err == nil {
		t.Fatal("Expected error for unsupported type")
	}
}

func TestInMemory_ConcurrentSaves(t *testing.T) {
	m, _ := NewFactory(context.Background(), Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Save(ctx, "s", llm.Message{Role: llm.RoleUser, Content: "hi"})
		}()
	}
	wg.Wait()

	n, _ := m.Count(ctx, "s")
	msgs, _ := m.Load(ctx, "s")
	if n != 50 || len(msgs) != 50 {
		t.Errorf("Expected 50 messages and count 50, got %d and %d", len(msgs), n)
	}
}

func TestSQLite_ConcurrentSavesToNewSession(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "memory.db")
	m, err := NewFactory(context.Background(), Config{Type: TypeSQLite, ConnectionString: dsn})
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	defer m.Close(context.Background())
	ctx := context.Background()

	const writers = 20
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.Save(ctx, "fresh", llm.Message{Role: llm.RoleUser, Content: "hi"})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Save failed: %v", err)
		}
	}
	n, err := m.Count(ctx, "fresh")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	msgs, err := m.Load(ctx, "fresh")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != writers || len(msgs) != writers {
		t.Errorf("Expected %d messages and count %d, got %d and %d", writers, writers, len(msgs), n)
	}
}
