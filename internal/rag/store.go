package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	chromem "github.com/philippgille/chromem-go"
)

// StoreConfig holds vector store configuration
type StoreConfig struct {
	PersistPath string // Directory holding the persisted store
	Collection  string // Collection name (default: "guidelines")
}

// Document represents a stored guideline chunk
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Passage is a retrieved guideline excerpt tagged with its source document.
type Passage struct {
	Source string
	Text   string
}

// SearchResult represents a search result
type SearchResult struct {
	Passage    Passage
	Similarity float32 // 0.0 to 1.0
}

// VectorStore manages guideline embeddings and similarity search
type VectorStore interface {
	// Add adds documents to the store
	Add(ctx context.Context, docs []Document) error

	// Query performs similarity search by text query
	Query(ctx context.Context, queryText string, topK int) ([]SearchResult, error)

	// Count returns total document count
	Count() int

	// Close closes the store
	Close() error
}

// chromemStore implements VectorStore using chromem-go
type chromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	config     StoreConfig
}

// persistFile returns the on-disk location of the store for a persist path.
func persistFile(persistPath string) string {
	return filepath.Join(persistPath, "chromem.gob")
}

// StoreExists reports whether a persisted store is already present.
func StoreExists(persistPath string) bool {
	if persistPath == "" {
		return false
	}
	_, err := os.Stat(persistFile(persistPath))
	return err == nil
}

// NewVectorStore opens (or creates) a vector store. With a persist path
// the store survives across runs; without one it is memory-only.
func NewVectorStore(config StoreConfig, embedder Embedder) (VectorStore, error) {
	if config.Collection == "" {
		config.Collection = "guidelines"
	}

	var db *chromem.DB
	var err error

	if config.PersistPath != "" {
		if err := os.MkdirAll(config.PersistPath, 0755); err != nil {
			return nil, fmt.Errorf("create persist dir: %w", err)
		}
		db, err = chromem.NewPersistentDB(persistFile(config.PersistPath), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}

	collection, err := db.GetOrCreateCollection(config.Collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &chromemStore{
		db:         db,
		collection: collection,
		config:     config,
	}, nil
}

// Add adds documents to the store
func (s *chromemStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	for _, doc := range docs {
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  doc.Metadata,
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// Query performs similarity search using a text query. An empty store
// yields an empty result set, not an error.
func (s *chromemStore) Query(ctx context.Context, queryText string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	// chromem rejects requests for more results than stored documents
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.Query(ctx, queryText, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		source := r.Metadata["source"]
		if source == "" {
			source = r.ID
		}
		searchResults = append(searchResults, SearchResult{
			Passage: Passage{
				Source: source,
				Text:   r.Content,
			},
			Similarity: r.Similarity,
		})
	}

	return searchResults, nil
}

// Count returns total document count
func (s *chromemStore) Count() int {
	return s.collection.Count()
}

// Close closes the store
func (s *chromemStore) Close() error {
	// chromem-go auto-persists on changes, no explicit close needed
	return nil
}
