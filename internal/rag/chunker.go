package rag

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// ChunkerConfig holds chunking configuration
type ChunkerConfig struct {
	ChunkSize    int // Tokens per chunk (default: 512)
	ChunkOverlap int // Token overlap between chunks (default: 50)
}

// Chunk represents a text chunk with metadata
type Chunk struct {
	Text     string
	Metadata map[string]string
}

// Chunker splits guideline text into chunks
type Chunker interface {
	// ChunkText splits text into chunks
	ChunkText(text string, metadata map[string]string) ([]Chunk, error)

	// CountTokens returns token count for text
	CountTokens(text string) (int, error)
}

// paragraphChunker accumulates paragraphs into token-bounded chunks.
// Guideline documents are prose, so paragraph boundaries beat the
// line-oriented splitting used for source code.
type paragraphChunker struct {
	config   ChunkerConfig
	encoding *tiktoken.Tiktoken
}

// NewChunker creates a new chunker
func NewChunker(config ChunkerConfig) (Chunker, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 512
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 50
	}

	// cl100k_base matches the embedding model's tokenizer family
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("get encoding: %w", err)
	}

	return &paragraphChunker{
		config:   config,
		encoding: encoding,
	}, nil
}

// ChunkText splits text into token-bounded chunks along paragraph breaks.
func (c *paragraphChunker) ChunkText(text string, metadata map[string]string) ([]Chunk, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}

	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil, nil
	}

	var chunks []Chunk
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, Chunk{
			Text:     strings.Join(current, "\n\n"),
			Metadata: cloneMetadata(metadata),
		})
	}

	for _, para := range paragraphs {
		paraTokens, err := c.CountTokens(para)
		if err != nil {
			return nil, err
		}

		// Oversized paragraph: flush what we have and hard-split it
		if paraTokens > c.config.ChunkSize {
			flush()
			current = nil
			currentTokens = 0
			for _, piece := range c.splitLongParagraph(para) {
				chunks = append(chunks, Chunk{
					Text:     piece,
					Metadata: cloneMetadata(metadata),
				})
			}
			continue
		}

		if currentTokens+paraTokens > c.config.ChunkSize && len(current) > 0 {
			flush()

			// Start the next chunk with trailing-paragraph overlap
			overlap, overlapTokens := c.overlapTail(current)
			current = overlap
			currentTokens = overlapTokens
		}

		current = append(current, para)
		currentTokens += paraTokens
	}

	flush()
	return chunks, nil
}

// splitLongParagraph splits an oversized paragraph into character blocks.
func (c *paragraphChunker) splitLongParagraph(para string) []string {
	// Roughly 4 characters per token
	charsPerChunk := c.config.ChunkSize * 4

	var pieces []string
	runes := []rune(para)
	for start := 0; start < len(runes); start += charsPerChunk {
		end := start + charsPerChunk
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

// overlapTail collects trailing paragraphs of the previous chunk up to
// the configured overlap budget.
func (c *paragraphChunker) overlapTail(previous []string) ([]string, int) {
	if c.config.ChunkOverlap <= 0 {
		return nil, 0
	}

	var tail []string
	tokens := 0
	for i := len(previous) - 1; i >= 0; i-- {
		paraTokens, err := c.CountTokens(previous[i])
		if err != nil || tokens+paraTokens > c.config.ChunkOverlap {
			break
		}
		tail = append([]string{previous[i]}, tail...)
		tokens += paraTokens
	}
	return tail, tokens
}

// CountTokens returns token count for text
func (c *paragraphChunker) CountTokens(text string) (int, error) {
	tokens := c.encoding.Encode(text, nil, nil)
	return len(tokens), nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(src))
	for key, value := range src {
		out[key] = value
	}
	return out
}
