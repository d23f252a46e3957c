package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"studio/internal/apperr"
)

const maxSuggestions = 4

const analyzeInstruction = `Look at this image and suggest 4 short, creative edit prompts a user might apply to it. Respond with a JSON array of 4 strings and nothing else. Each suggestion must be under 10 words.`

// AnalyzeImage asks the model for edit suggestions tailored to the uploaded
// image. The response body must be a JSON array of short strings; anything
// non-conforming is an upstream failure so the caller can fall back to its
// default suggestion set.
func (c *Client) AnalyzeImage(ctx context.Context, data []byte, mime string) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no image provided", apperr.ErrInvalidInput)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				inlinePart(data, mime),
				{Text: analyzeInstruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.7,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}

	var resp geminiGenerateContentResponse
	if err := c.invoke(ctx, c.textModel, payload, &resp); err != nil {
		return nil, err
	}

	text, err := firstTextPart(&resp)
	if err != nil {
		return nil, err
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &suggestions); err != nil {
		return nil, fmt.Errorf("%w: suggestions are not a JSON string array: %v", apperr.ErrUpstream, err)
	}

	cleaned := make([]string, 0, maxSuggestions)
	for _, s := range suggestions {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cleaned = append(cleaned, s)
		if len(cleaned) == maxSuggestions {
			break
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: suggestion array is empty", apperr.ErrUpstream)
	}
	return cleaned, nil
}

// stripCodeFence removes a ```json ... ``` wrapper that models sometimes add
// around JSON output even when asked for a bare body.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
