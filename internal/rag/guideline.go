package rag

import (
	"context"
	"fmt"
	"os"

	"ethix/internal/logging"
)

// GuidelineStoreConfig configures opening or building the guideline store.
type GuidelineStoreConfig struct {
	PersistPath string
	Collection  string
	SourceDir   string
	Chunk       ChunkerConfig
	Embed       EmbedderConfig
}

// OpenGuidelineStore opens the persisted guideline store, building it
// from the source directory when absent. The returned flag reports
// whether a build ran. Building with no source documents is fatal;
// reusing an existing store never touches the source directory.
func OpenGuidelineStore(ctx context.Context, config GuidelineStoreConfig, logger logging.Logger) (VectorStore, bool, error) {
	embedder, err := NewEmbedder(config.Embed)
	if err != nil {
		return nil, false, fmt.Errorf("create embedder: %w", err)
	}
	return openGuidelineStore(ctx, config, embedder, logger)
}

func openGuidelineStore(ctx context.Context, config GuidelineStoreConfig, embedder Embedder, logger logging.Logger) (VectorStore, bool, error) {
	logger = logging.OrNop(logger)

	existed := StoreExists(config.PersistPath)
	store, err := NewVectorStore(StoreConfig{
		PersistPath: config.PersistPath,
		Collection:  config.Collection,
	}, embedder)
	if err != nil {
		return nil, false, fmt.Errorf("open vector store: %w", err)
	}

	if existed && store.Count() > 0 {
		logger.Info("reusing guideline store at %s (%d chunks)", config.PersistPath, store.Count())
		return store, false, nil
	}

	logger.Info("guideline store absent, building from %s", config.SourceDir)
	chunker, err := newChunker(config.Chunk)
	if err != nil {
		return nil, false, fmt.Errorf("create chunker: %w", err)
	}
	indexer := NewIndexer(IndexerConfig{
		SourceDir:   config.SourceDir,
		ChunkConfig: config.Chunk,
	}, chunker, embedder, store)

	if _, err := indexer.Index(ctx); err != nil {
		return nil, false, fmt.Errorf("build guideline store: %w", err)
	}

	return store, true, nil
}

// RebuildGuidelineStore drops any persisted store and rebuilds it.
func RebuildGuidelineStore(ctx context.Context, config GuidelineStoreConfig, logger logging.Logger) (VectorStore, *IndexStats, error) {
	logger = logging.OrNop(logger)

	if StoreExists(config.PersistPath) {
		if err := os.RemoveAll(persistFile(config.PersistPath)); err != nil {
			return nil, nil, fmt.Errorf("remove existing store: %w", err)
		}
		logger.Info("removed existing guideline store at %s", config.PersistPath)
	}

	embedder, err := NewEmbedder(config.Embed)
	if err != nil {
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}

	store, err := NewVectorStore(StoreConfig{
		PersistPath: config.PersistPath,
		Collection:  config.Collection,
	}, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("open vector store: %w", err)
	}

	chunker, err := newChunker(config.Chunk)
	if err != nil {
		return nil, nil, fmt.Errorf("create chunker: %w", err)
	}
	indexer := NewIndexer(IndexerConfig{
		SourceDir:   config.SourceDir,
		ChunkConfig: config.Chunk,
	}, chunker, embedder, store)

	stats, err := indexer.Index(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build guideline store: %w", err)
	}

	return store, stats, nil
}

// newChunker is swappable in tests; the tokenizer fetches its encoding
// over the network on first use, so creation can fail on offline hosts.
var newChunker = NewChunker
