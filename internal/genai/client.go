// Package genai is the facade over the Gemini generateContent API. It exposes
// the studio's six remote operations — edit image, generate image, analyze
// image for suggestions, converse per persona, synthesize speech and
// synthesize a quiz — and classifies transport failures into the coarse
// buckets the rest of the system understands.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"studio/internal/apperr"
)

// Options controls how the client is configured.
type Options struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	ImageModel  string
	SpeechModel string
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// Client holds the HTTP plumbing shared by all gateway operations plus the
// per-persona conversation sessions.
type Client struct {
	apiKey      string
	baseURL     string
	textModel   string
	imageModel  string
	speechModel string
	httpClient  *http.Client
	logger      zerolog.Logger

	// sessions maps "<owner>/<persona>" to a *ChatSession, created lazily
	// on first use and expired with the owning login session.
	sessions *cache.Cache
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; one with a transport-level timeout is created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: generation API key is required", apperr.ErrConfiguration)
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	c := &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		textModel:   defaultString(opts.TextModel, "gemini-2.5-flash"),
		imageModel:  defaultString(opts.ImageModel, "gemini-2.5-flash-image"),
		speechModel: defaultString(opts.SpeechModel, "gemini-2.5-flash-preview-tts"),
		httpClient:  client,
		logger:      opts.Logger,
		sessions:    cache.New(2*time.Hour, 15*time.Minute),
	}
	return c, nil
}

// Wire types for the generateContent request/response cycle.

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64             `json:"temperature,omitempty"`
	CandidateCount     int                 `json:"candidateCount,omitempty"`
	ResponseMimeType   string              `json:"responseMimeType,omitempty"`
	ResponseModalities []string            `json:"responseModalities,omitempty"`
	SpeechConfig       *geminiSpeechConfig `json:"speechConfig,omitempty"`
}

type geminiSpeechConfig struct {
	VoiceConfig geminiVoiceConfig `json:"voiceConfig"`
}

type geminiVoiceConfig struct {
	PrebuiltVoiceConfig geminiPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type geminiPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type geminiGenerateContentRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Status  string `json:"status,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// invoke posts a generateContent payload to the given model and decodes the
// response, mapping transport and status failures onto the error taxonomy.
func (c *Client) invoke(ctx context.Context, model string, payload geminiGenerateContentRequest, out *geminiGenerateContentResponse) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", apperr.ErrUpstream, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", apperr.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return classifyStatus(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperr.ErrUpstream, err)
	}
	return nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", apperr.ErrTimeout, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w: %v", apperr.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", apperr.ErrUpstream, err)
}

func classifyStatus(resp *http.Response) error {
	var apiErr geminiErrorResponse
	msg := ""
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
		msg = apiErr.Error.Message
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		strings.Contains(msg, "API key not valid"):
		return fmt.Errorf("%w: status %d: %s", apperr.ErrInvalidCredentials, resp.StatusCode, msg)
	case resp.StatusCode == http.StatusGatewayTimeout,
		strings.Contains(strings.ToLower(msg), "deadline"):
		return fmt.Errorf("%w: status %d: %s", apperr.ErrTimeout, resp.StatusCode, msg)
	default:
		return fmt.Errorf("%w: status %d: %s", apperr.ErrUpstream, resp.StatusCode, msg)
	}
}

// firstImagePart extracts the first inline payload whose mime type is an
// image category. Absence of one is a NoPayload failure.
func firstImagePart(resp *geminiGenerateContentResponse) ([]byte, error) {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MimeType, "image/") {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("%w: decode inline data: %v", apperr.ErrUpstream, err)
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no image data in the API response", apperr.ErrNoPayload)
}

// firstTextPart extracts the first non-empty text payload.
func firstTextPart(resp *geminiGenerateContentResponse) (string, error) {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no text in the API response", apperr.ErrNoPayload)
}

func inlinePart(data []byte, mime string) geminiPart {
	return geminiPart{InlineData: &geminiInlineData{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(data),
	}}
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
