package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// markdownRenderer renders report Markdown for the terminal.
type markdownRenderer struct {
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer() (*markdownRenderer, error) {
	termWidth := 80
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		termWidth = width - 4
		if termWidth > 120 {
			termWidth = 120
		}
	}

	style := glamour.WithStandardStyle("dark")
	if !isTTY() {
		style = glamour.WithStandardStyle("notty")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(termWidth),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &markdownRenderer{renderer: renderer}, nil
}

func (mr *markdownRenderer) renderAndPrint(content string) error {
	if content == "" {
		return nil
	}
	rendered, err := mr.renderer.Render(content)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	fmt.Print(rendered)
	return nil
}
