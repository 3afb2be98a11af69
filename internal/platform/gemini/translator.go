package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Translator translates short texts with the text model.
type Translator struct {
	client *Client
}

// NewTranslator creates a Translator.
func NewTranslator(client *Client) *Translator {
	return &Translator{client: client}
}

// Translate implements the pipeline's Translator.
func (t *Translator) Translate(ctx context.Context, text, language string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	if language == "" {
		return text, nil
	}

	prompt, err := renderPrompt("translate.tmpl", translatePromptData{Text: text, Language: language})
	if err != nil {
		return "", err
	}

	content, err := t.client.generate(ctx, t.client.config.ModelName, prompt, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", err
	}

	translated := strings.TrimSpace(textOf(content))
	if translated == "" {
		return "", fmt.Errorf("%w: empty translation", ErrInvalidResponse)
	}
	return translated, nil
}
