package rag

import (
	"context"
	"crypto/sha256"
	"fmt"

	"ethix/internal/logging"
)

// IndexerConfig holds indexing configuration
type IndexerConfig struct {
	SourceDir   string
	ChunkConfig ChunkerConfig
}

// IndexStats holds indexing statistics
type IndexStats struct {
	TotalDocuments   int
	IndexedDocuments int
	TotalChunks      int
	ErrorDocuments   int
}

// Indexer chunks, embeds and stores guideline documents.
type Indexer struct {
	config   IndexerConfig
	chunker  Chunker
	embedder Embedder
	store    VectorStore
	logger   logging.Logger
}

// NewIndexer creates a new indexer
func NewIndexer(config IndexerConfig, chunker Chunker, embedder Embedder, store VectorStore) *Indexer {
	return &Indexer{
		config:   config,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logging.NewComponentLogger("rag-indexer"),
	}
}

// Index loads all documents from the source directory and indexes them.
// A directory without any readable document is a fatal error: building
// a silently empty store would make every later retrieval meaningless.
func (idx *Indexer) Index(ctx context.Context) (*IndexStats, error) {
	docs, err := LoadDirectory(idx.config.SourceDir, idx.logger)
	if err != nil {
		return nil, err
	}
	return idx.IndexDocuments(ctx, docs)
}

// IndexDocuments indexes pre-loaded documents.
func (idx *Indexer) IndexDocuments(ctx context.Context, docs []SourceDocument) (*IndexStats, error) {
	stats := &IndexStats{TotalDocuments: len(docs)}

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if err := idx.indexDocument(ctx, doc); err != nil {
			idx.logger.Warn("index %s failed: %v", doc.Source, err)
			stats.ErrorDocuments++
			continue
		}
		stats.IndexedDocuments++
	}

	if stats.IndexedDocuments == 0 {
		return stats, fmt.Errorf("indexing failed for all %d documents", stats.TotalDocuments)
	}

	stats.TotalChunks = idx.store.Count()
	idx.logger.Info("indexed %d/%d documents into %d chunks",
		stats.IndexedDocuments, stats.TotalDocuments, stats.TotalChunks)
	return stats, nil
}

// indexDocument chunks, embeds and stores a single document.
func (idx *Indexer) indexDocument(ctx context.Context, doc SourceDocument) error {
	chunks, err := idx.chunker.ChunkText(doc.Text, map[string]string{"source": doc.Source})
	if err != nil {
		return fmt.Errorf("chunk text: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		batch := chunks[i:end]
		texts := make([]string, len(batch))
		for j, chunk := range batch {
			texts[j] = chunk.Text
		}

		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		docs := make([]Document, len(batch))
		for j, chunk := range batch {
			docID := fmt.Sprintf("%s:%d", doc.Source, i+j)
			hashID := fmt.Sprintf("%x", sha256.Sum256([]byte(docID)))[:16]

			docs[j] = Document{
				ID:        hashID,
				Content:   chunk.Text,
				Embedding: embeddings[j],
				Metadata:  chunk.Metadata,
			}
		}

		if err := idx.store.Add(ctx, docs); err != nil {
			return fmt.Errorf("store documents: %w", err)
		}
	}

	return nil
}
