package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// Categories an activity may be classified into. The model must pick one.
var Categories = []string{
	"museum", "playground", "sports", "indoor", "outdoor", "zoo", "theater",
	"swimming", "climbing", "park", "cafe", "festival", "education", "other",
}

const systemPromptFormat = `You analyze website content for kids' activities in Munich/Bavaria area.

Extract the following information from the provided website content:

1. **category**: Choose ONE from: %s
2. **openHours**: Opening hours in format "Mon-Fri 9:00-18:00" or similar. Set to null if not found.
3. **address**: Full address including city. Set to null if not found.
4. **prices**: Array of {"service": "...", "price": "..."} objects. Include entry fees, course prices, etc. Empty array if none found.
5. **services**: Array of services/activities offered (e.g., "climbing wall", "swimming lessons")
6. **description**: 1-2 sentence description of what this place/activity is about.
7. **shortName**: A concise name for the place/activity (1-2 words preferred, max 5 words). Examples: "Kinderkunsthaus", "Tierpark Hellabrunn", "Boulderwelt München".
8. **ageRange**: Target age range for children (e.g., "0-3 years", "4-12 years", "from 6 years", "all ages"). Set to null if not mentioned on the website.

Respond with valid JSON only:
{
  "category": "museum",
  "openHours": "Mon-Sun 10:00-18:00" or null,
  "address": "Musterstraße 1, 80331 München" or null,
  "prices": [{"service": "Entry adults", "price": "12€"}],
  "services": ["guided tours", "workshops"],
  "description": "A children's museum with interactive exhibits.",
  "shortName": "Kindermuseum",
  "ageRange": "4-12 years" or null
}`

// LLMClient extracts structured activity attributes from crawled website
// content via an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	cfg    *config.AnalysisConfig
	client *http.Client
	logger *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg *config.Config, logger *slog.Logger) *LLMClient {
	return &LLMClient{
		cfg: &cfg.Analysis,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger.With("component", "llm_client"),
	}
}

// Analyse sends the combined page content to the model and decodes the
// structured result. Content beyond the configured limit is truncated to
// keep within the model's context window.
func (c *LLMClient) Analyse(ctx context.Context, url, content string) (*types.Analysis, error) {
	if c.cfg.APIKey == "" {
		return nil, types.ErrMissingKey
	}

	if len(content) > c.cfg.MaxContentChars {
		content = content[:c.cfg.MaxContentChars] + "\n\n[Content truncated...]"
	}

	payload := map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": fmt.Sprintf(systemPromptFormat, strings.Join(Categories, ", "))},
			{"role": "user", "content": fmt.Sprintf("Analyze this website: %s\n\nContent:\n%s", url, content)},
		},
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm request: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("no choices in llm response")
	}

	var analysis types.Analysis
	raw := result.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		// Some models wrap the object in prose despite json_object mode.
		if err := json.Unmarshal([]byte(extractJSON(raw)), &analysis); err != nil {
			return nil, fmt.Errorf("parse analysis: %w", err)
		}
	}

	c.logger.Debug("analysis complete",
		"url", url,
		"category", analysis.Category,
		"duration", time.Since(start),
	)
	return &analysis, nil
}

// extractJSON tries to find a JSON object in the LLM response.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return "{}"
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return "{}"
}
