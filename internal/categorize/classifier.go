package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Vishun-Projects/Finance-sub000/internal/domain"
)

// ErrRateLimited signals that the upstream model refused the request due to
// quota. Callers back off and retry the same sub-batch instead of skipping
// it, so no quota already spent on the batch is wasted.
var ErrRateLimited = errors.New("classifier: upstream rate limited")

// Classifier assigns categories to transactions that rules and learned
// patterns could not resolve.
type Classifier interface {
	// ClassifyBatch returns a transaction-id to category-id mapping for the
	// items the model could classify. Missing entries mean the model passed.
	ClassifyBatch(ctx context.Context, txs []*domain.Transaction, categories []domain.Category) (map[string]string, error)
}

// DefaultModelName is the default Gemini model used for classification.
const DefaultModelName = "gemini-2.5-flash"

// GeminiClassifier is the concrete Classifier backed by Gemini.
type GeminiClassifier struct {
	model string
}

// NewGeminiClassifier creates a classifier for the given model name
// (DefaultModelName when empty).
func NewGeminiClassifier(model string) *GeminiClassifier {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiClassifier{model: model}
}

// ClassifyBatch sends one small batch of transactions to Gemini and parses
// the strict-JSON response. It expects the model to answer with a JSON array
// of {"id": ..., "category_id": ...} objects.
func (c *GeminiClassifier) ClassifyBatch(ctx context.Context, txs []*domain.Transaction, categories []domain.Category) (map[string]string, error) {
	if len(txs) == 0 {
		return map[string]string{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("ClassifyBatch: create genai client: %w", err)
	}

	prompt := buildClassifyPrompt(txs, categories)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		if isRateLimitErr(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("ClassifyBatch: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("ClassifyBatch: empty response from model")
	}

	clean := cleanModelJSON(rawText)

	var parsed []struct {
		ID         string `json:"id"`
		CategoryID string `json:"category_id"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("ClassifyBatch: unmarshal JSON: %w\nraw response: %s", err, rawText)
	}

	valid := make(map[string]bool, len(categories))
	for _, cat := range categories {
		valid[cat.ID] = true
	}

	result := make(map[string]string, len(parsed))
	for _, item := range parsed {
		if item.ID == "" || !valid[item.CategoryID] {
			continue
		}
		result[item.ID] = item.CategoryID
	}
	return result, nil
}

// buildClassifyPrompt renders the taxonomy and the batch as a strict-JSON
// classification task.
func buildClassifyPrompt(txs []*domain.Transaction, categories []domain.Category) string {
	var b strings.Builder

	b.WriteString("You are a bank transaction classifier for a personal finance tracker.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Assign the best-fitting category to EVERY transaction below.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects: {\"id\": string, \"category_id\": string}.\n\n")

	b.WriteString("Use ONLY the following category ids:\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", cat.ID, cat.Name, cat.FinancialType)
	}

	b.WriteString("\nTransactions:\n")
	for _, tx := range txs {
		direction := "debit"
		if tx.CreditAmount.IsPositive() {
			direction = "credit"
		}
		fmt.Fprintf(&b, "{\"id\": %q, \"date\": %q, \"description\": %q, \"merchant\": %q, \"amount\": %q, \"direction\": %q}\n",
			tx.ID, tx.TransactionDate.String(), tx.Description, tx.Store, tx.Amount().String(), direction)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Every output object's \"category_id\" must be one of the ids listed above.\n")
	b.WriteString("- If genuinely unsure about a transaction, omit it from the output.\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n")

	return b.String()
}

// isRateLimitErr recognizes upstream quota refusals across the error shapes
// the SDK surfaces them in.
func isRateLimitErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "rate limit")
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			// Single-line weirdness; just return as-is.
			return s
		}
		s = strings.TrimSpace(s)
	}

	// Remove trailing ``` if present.
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Extra safety: if there's still junk around the JSON array,
	// try to keep only from the first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = s[start : end+1]
			s = strings.TrimSpace(s)
		}
	}

	return s
}
