package classifier

import (
	"context"
	"fmt"

	"regwatch.co/sentinel/common/llm"
	"regwatch.co/sentinel/core/config"
	"regwatch.co/sentinel/internal/model"
)

const systemPrompt = `You are a regulatory change analyst. You compare two versions of a published regulatory page for a given jurisdiction and decide whether the change is material.

A change is material when it alters obligations, forms, fees, deadlines, eligibility, procedures or official guidance for regulated parties. Formatting changes, typo fixes, date stamps, navigation or boilerplate updates are NOT material.

Severity:
- critical: immediate action required (new mandatory form, changed deadline, new obligation)
- important: action likely required soon (rule change with transition period, fee change)
- info: worth knowing, no action required (clarified guidance, announced consultation)

If there is no material change, set has_material_change to false and leave the other fields empty.`

// maxContentChars bounds each content side sent to the model. Pages
// larger than this are truncated from the middle so both the top matter
// and recent additions at the bottom survive.
const maxContentChars = 24000

type openAIClassifier struct {
	client    llm.Client
	maxTokens int
}

// NewOpenAI builds the production classifier on the structured-output
// LLM client.
func NewOpenAI(cfg config.ClassifierConfig) (Classifier, error) {
	client, err := llm.New(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	return &openAIClassifier{client: client, maxTokens: cfg.MaxTokens}, nil
}

// NewWithClient builds a classifier on an existing LLM client.
func NewWithClient(client llm.Client, maxTokens int) Classifier {
	return &openAIClassifier{client: client, maxTokens: maxTokens}
}

func (c *openAIClassifier) Classify(ctx context.Context, oldContent, newContent, jurisdiction string) (model.Classification, error) {
	userPrompt := fmt.Sprintf(
		"Jurisdiction: %s\n\n--- PREVIOUS VERSION ---\n%s\n\n--- CURRENT VERSION ---\n%s",
		jurisdiction,
		truncate(oldContent, maxContentChars),
		truncate(newContent, maxContentChars),
	)

	var raw RawResult
	_, err := c.client.Chat(ctx, llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		SchemaName:   "change_classification",
		Schema:       llm.GenerateSchema[RawResult](),
		MaxTokens:    c.maxTokens,
		Temperature:  llm.Temp(0),
	}, &raw)
	if err != nil {
		return model.Classification{}, &Error{Reason: "llm call failed", Err: err}
	}

	return Normalize(raw)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	half := max / 2
	return s[:half] + "\n[... truncated ...]\n" + s[len(s)-half:]
}
