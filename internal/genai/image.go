package genai

import (
	"context"
	"fmt"

	"studio/internal/apperr"
)

// EditImage sends a source image plus an edit instruction and returns the
// generated image bytes. The response is always treated as PNG downstream.
func (c *Client) EditImage(ctx context.Context, data []byte, mime, prompt string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no source image provided", apperr.ErrInvalidInput)
	}
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", apperr.ErrInvalidInput)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				inlinePart(data, mime),
				{Text: prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	var resp geminiGenerateContentResponse
	if err := c.invoke(ctx, c.imageModel, payload, &resp); err != nil {
		return nil, err
	}

	img, err := firstImagePart(&resp)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("model", c.imageModel).Int("bytes", len(img)).Msg("genai: edited image")
	return img, nil
}

// GenerateImage creates an image from a text description alone.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt is empty", apperr.ErrInvalidInput)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"IMAGE"},
		},
	}

	var resp geminiGenerateContentResponse
	if err := c.invoke(ctx, c.imageModel, payload, &resp); err != nil {
		return nil, err
	}

	img, err := firstImagePart(&resp)
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("model", c.imageModel).Int("bytes", len(img)).Msg("genai: generated image")
	return img, nil
}
