package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ethix/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDirectoryReadsTextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "oecd.txt", "AI actors should respect human rights.")
	writeFile(t, dir, "unesco.md", "# Ethics\n\nMember states should ensure oversight.")
	writeFile(t, dir, "ignored.csv", "not,a,guideline")

	docs, err := LoadDirectory(dir, logging.Nop())
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	sources := map[string]bool{}
	for _, doc := range docs {
		sources[doc.Source] = true
	}
	if !sources["oecd.txt"] || !sources["unesco.md"] {
		t.Fatalf("unexpected sources: %v", sources)
	}
}

func TestLoadDirectorySkipsEmptyAndStoreDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "real.txt", "Substantive guideline content.")
	writeFile(t, dir, "blank.txt", "   \n ")

	storeDir := filepath.Join(dir, "vectorstore")
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, storeDir, "leftover.txt", "should not be loaded")

	docs, err := LoadDirectory(dir, logging.Nop())
	if err != nil {
		t.Fatalf("load directory: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "real.txt" {
		t.Fatalf("expected only real.txt, got %+v", docs)
	}
}

func TestLoadDirectoryEmptyIsFatal(t *testing.T) {
	_, err := LoadDirectory(t.TempDir(), logging.Nop())
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestOpenGuidelineStoreBuildsThenReuses(t *testing.T) {
	ctx := context.Background()
	sourceDir := t.TempDir()
	persistDir := t.TempDir()
	writeFile(t, sourceDir, "eu.txt", "High-risk systems require human oversight.\n\nProviders must keep logs.")

	config := GuidelineStoreConfig{
		PersistPath: persistDir,
		SourceDir:   sourceDir,
		Chunk:       ChunkerConfig{ChunkSize: 64, ChunkOverlap: 8},
	}

	store, built, err := openGuidelineStore(ctx, config, hashEmbedder{}, logging.Nop())
	if err != nil {
		t.Fatalf("open guideline store: %v", err)
	}
	if !built {
		t.Fatal("expected first open to build the store")
	}
	if store.Count() == 0 {
		t.Fatal("expected chunks after build")
	}

	reopened, built, err := openGuidelineStore(ctx, config, hashEmbedder{}, logging.Nop())
	if err != nil {
		t.Fatalf("reopen guideline store: %v", err)
	}
	if built {
		t.Fatal("expected second open to reuse the store")
	}
	if reopened.Count() != store.Count() {
		t.Fatalf("reopened store count %d != built count %d", reopened.Count(), store.Count())
	}
}

func TestOpenGuidelineStoreChunkerFailureIsAnError(t *testing.T) {
	original := newChunker
	newChunker = func(ChunkerConfig) (Chunker, error) {
		return nil, errors.New("encoding unavailable")
	}
	t.Cleanup(func() { newChunker = original })

	sourceDir := t.TempDir()
	writeFile(t, sourceDir, "eu.txt", "High-risk systems require human oversight.")

	config := GuidelineStoreConfig{
		PersistPath: t.TempDir(),
		SourceDir:   sourceDir,
	}

	_, _, err := openGuidelineStore(context.Background(), config, hashEmbedder{}, logging.Nop())
	if err == nil || !strings.Contains(err.Error(), "encoding unavailable") {
		t.Fatalf("expected chunker error to propagate, got %v", err)
	}
}

func TestOpenGuidelineStoreMissingSourcesIsFatal(t *testing.T) {
	config := GuidelineStoreConfig{
		PersistPath: t.TempDir(),
		SourceDir:   t.TempDir(),
	}

	_, _, err := openGuidelineStore(context.Background(), config, hashEmbedder{}, logging.Nop())
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}
