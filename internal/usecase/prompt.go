package usecase

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var prompts = template.Must(template.New("prompts").ParseFS(promptTemplates, "templates/*.txt"))

// PromptData is the input of the prompt templates.
type PromptData struct {
	Query   string
	Context string
}

// SystemPrompt returns the fixed system instruction.
func SystemPrompt() string {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, "system.txt", nil); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}

// RenderPrompt renders the grounded template when context is non-empty and
// the ungrounded one otherwise.
func RenderPrompt(query, contextBlock string) (string, bool, error) {
	name := "ungrounded.txt"
	grounded := contextBlock != ""
	if grounded {
		name = "grounded.txt"
	}

	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, PromptData{Query: query, Context: contextBlock}); err != nil {
		return "", grounded, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), grounded, nil
}
