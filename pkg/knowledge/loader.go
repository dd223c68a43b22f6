package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
)

// DefaultKnowledgeBasePath is the file written by the builder and read at start.
const DefaultKnowledgeBasePath = "knowledge-base.json"

// LoadOutcome describes what a successful Load call did.
type LoadOutcome int

const (
	// LoadLoaded means the file was read and the store initialized.
	LoadLoaded LoadOutcome = iota + 1
	// LoadAlreadyInitialized means an earlier call already loaded the store.
	LoadAlreadyInitialized
	// LoadMissing means no knowledge-base file exists; the store stays empty.
	LoadMissing
)

func (o LoadOutcome) String() string {
	switch o {
	case LoadLoaded:
		return "loaded"
	case LoadAlreadyInitialized:
		return "already_initialized"
	case LoadMissing:
		return "missing"
	}
	return "unknown"
}

// Loader populates a Store from the knowledge-base file exactly once.
type Loader struct {
	mu          sync.Mutex
	store       *Store
	path        string
	readFile    func(name string) ([]byte, error)
	logger      *slog.Logger
	initialized bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithReadFile replaces the function used to read the knowledge-base file.
func WithReadFile(fn func(name string) ([]byte, error)) LoaderOption {
	return func(l *Loader) {
		l.readFile = fn
	}
}

// WithLoaderLogger sets the logger used by the loader.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader that fills store from the file at path.
func NewLoader(store *Store, path string, opts ...LoaderOption) *Loader {
	if path == "" {
		path = DefaultKnowledgeBasePath
	}
	l := &Loader{
		store:    store,
		path:     path,
		readFile: os.ReadFile,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the knowledge-base file into the store. Subsequent calls after a
// successful load are no-ops. A missing file is not an error: it is reported
// as LoadMissing and a later call will look again. A file that cannot be
// decoded returns an error wrapping ErrMalformedKnowledgeBase.
func (l *Loader) Load(ctx context.Context) (LoadOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		l.logger.Info("knowledge base already initialized")
		return LoadAlreadyInitialized, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := l.readFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("knowledge base file not found, vector search will return no results until it is built",
				"path", l.path)
			return LoadMissing, nil
		}
		return 0, fmt.Errorf("read knowledge base %s: %w", l.path, err)
	}

	chunks, err := DecodeChunks(data)
	if err != nil {
		return 0, fmt.Errorf("load knowledge base %s: %w", l.path, err)
	}

	l.store.Initialize(chunks)
	l.initialized = true
	l.logger.Info("knowledge base loaded", "path", l.path, "chunks", len(chunks))
	return LoadLoaded, nil
}

// IsInitialized reports whether the knowledge base has been loaded.
func (l *Loader) IsInitialized() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initialized
}
