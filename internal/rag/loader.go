package rag

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"ethix/internal/logging"
)

// ErrNoDocuments is returned when a source directory yields no readable
// guideline documents. Store construction treats this as fatal.
var ErrNoDocuments = errors.New("no guideline documents found")

// SourceDocument is one loaded guideline document before chunking.
type SourceDocument struct {
	Source string // document identifier (base file name)
	Text   string
}

// LoadDirectory reads all .txt, .md and .pdf documents under dir.
// Hidden directories and the persisted store location are skipped.
func LoadDirectory(dir string, logger logging.Logger) ([]SourceDocument, error) {
	logger = logging.OrNop(logger)

	var docs []SourceDocument
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == "vectorstore") {
				return fs.SkipDir
			}
			return nil
		}

		var text string
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			content, readErr := os.ReadFile(path)
			if readErr != nil {
				logger.Warn("skipping unreadable document %s: %v", path, readErr)
				return nil
			}
			text = string(content)
		case ".pdf":
			extracted, readErr := extractPDFText(path)
			if readErr != nil {
				logger.Warn("skipping unreadable PDF %s: %v", path, readErr)
				return nil
			}
			text = extracted
		default:
			return nil
		}

		if strings.TrimSpace(text) == "" {
			logger.Warn("skipping empty document %s", path)
			return nil
		}

		docs = append(docs, SourceDocument{
			Source: filepath.Base(path),
			Text:   text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk guideline directory: %w", err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}

	logger.Info("loaded %d guideline documents from %s", len(docs), dir)
	return docs, nil
}

// extractPDFText pulls plain text out of a PDF document.
func extractPDFText(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer file.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	content, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	return string(content), nil
}
