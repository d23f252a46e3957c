package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"studio/internal/apperr"
)

// QuizQuestion is one synthesized question with a fixed small option set.
type QuizQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

const quizInstruction = `Based on the study conversation below, write a multiple-choice quiz of 3 to 5 questions. Respond with a JSON array and nothing else. Each element must be an object with keys "question" (string), "options" (array of 4 strings) and "answer" (one of the options, verbatim).

Conversation:
`

// GenerateQuiz synthesizes a quiz from the flattened text of a study thread.
// The response must conform to the fixed question/options/answer shape;
// anything else is a parse failure mapped to an upstream failure.
func (c *Client) GenerateQuiz(ctx context.Context, conversation string) ([]QuizQuestion, error) {
	if strings.TrimSpace(conversation) == "" {
		return nil, fmt.Errorf("%w: conversation is empty", apperr.ErrInvalidInput)
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: quizInstruction + conversation}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      0.4,
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

	var questions []QuizQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &questions); err != nil {
		return nil, fmt.Errorf("%w: quiz body is not the expected JSON shape: %v", apperr.ErrUpstream, err)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
			return nil, fmt.Errorf("%w: quiz question %d is incomplete", apperr.ErrUpstream, i+1)
		}
		if !containsOption(q.Options, q.Answer) {
			return nil, fmt.Errorf("%w: quiz question %d answer is not among its options", apperr.ErrUpstream, i+1)
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz is empty", apperr.ErrUpstream)
	}
	return questions, nil
}

func containsOption(options []string, answer string) bool {
	for _, o := range options {
		if o == answer {
			return true
		}
	}
	return false
}

// speechVoices maps a locale to a prebuilt voice. Unknown locales fall back
// to the English voice.
var speechVoices = map[string]string{
	"en": "Kore",
	"id": "Leda",
	"es": "Puck",
}

// SynthesizeSpeech turns assistant text into raw PCM audio (24kHz mono). The
// clip is ephemeral: nothing is stored server-side.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, locale string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", apperr.ErrInvalidInput)
	}
	voice, ok := speechVoices[locale]
	if !ok {
		voice = speechVoices["en"]
	}

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: text}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &geminiSpeechConfig{
				VoiceConfig: geminiVoiceConfig{
					PrebuiltVoiceConfig: geminiPrebuiltVoice{VoiceName: voice},
				},
			},
		},
	}

	var resp geminiGenerateContentResponse
	if err := c.invoke(ctx, c.speechModel, payload, &resp); err != nil {
		return nil, err
	}

	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MimeType, "audio/") {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decode audio data: %v", apperr.ErrUpstream, err)
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no audio data in the API response", apperr.ErrNoPayload)
}
