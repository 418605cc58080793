package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kisanmitra/agriadvisor/resilience"
)

const maxResponseBytes = 32 << 20

// GeminiConfig configures a GeminiClient.
type GeminiConfig struct {
	APIKey string

	// BaseURL is the API root.
	// Default: https://generativelanguage.googleapis.com/v1beta
	BaseURL string

	// Model is used for text, search and JSON requests.
	// Default: gemini-3-flash-preview
	Model string

	// SpeechModel is used for requests with a Voice.
	// Default: gemini-2.5-flash-preview-tts
	SpeechModel string

	// Timeout bounds each HTTP call.
	// Default: 60 seconds
	Timeout time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	// Limiter paces outbound calls. Nil disables pacing.
	Limiter *resilience.RateLimiter
}

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	apiKey      string
	baseURL     string
	model       string
	speechModel string
	httpClient  *http.Client
	limiter     *resilience.RateLimiter
}

// NewGeminiClient creates a client from cfg.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-3-flash-preview"
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = "gemini-2.5-flash-preview-tts"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &GeminiClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		speechModel: cfg.SpeechModel,
		httpClient:  httpClient,
		limiter:     cfg.Limiter,
	}, nil
}

// Generate implements Generator.
func (c *GeminiClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if req == nil || len(req.Parts) == 0 {
		return nil, fmt.Errorf("%w: no content parts", ErrInvalidInput)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("advisor: upstream pacing: %w", err)
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
		if req.Voice != "" {
			model = c.speechModel
		}
	}

	body, err := json.Marshal(buildGeminiRequest(req))
	if err != nil {
		return nil, fmt.Errorf("advisor: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("advisor: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("advisor: gemini request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("advisor: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, data)
	}

	var gr geminiResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("advisor: decode response: %w", err)
	}
	return gr.toResponse(), nil
}

// Wire types for generateContent.

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	Tools            []geminiTool      `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig struct {
		PrebuiltVoiceConfig struct {
			VoiceName string `json:"voiceName"`
		} `json:"prebuiltVoiceConfig"`
	} `json:"voiceConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *Source `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func buildGeminiRequest(req *GenerateRequest) geminiRequest {
	parts := make([]geminiPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		gp := geminiPart{Text: p.Text}
		if p.InlineData != nil {
			gp.InlineData = &inlineData{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		parts = append(parts, gp)
	}

	out := geminiRequest{Contents: []geminiContent{{Role: "user", Parts: parts}}}
	if req.GoogleSearch {
		out.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	if req.ResponseMIMEType != "" || req.Voice != "" {
		gc := &generationConfig{ResponseMIMEType: req.ResponseMIMEType}
		if req.Voice != "" {
			gc.ResponseModalities = []string{"AUDIO"}
			gc.SpeechConfig = &speechConfig{}
			gc.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName = req.Voice
		}
		out.GenerationConfig = gc
	}
	return out
}

func (r *geminiResponse) toResponse() *GenerateResponse {
	out := &GenerateResponse{}
	if len(r.Candidates) == 0 {
		return out
	}
	cand := r.Candidates[0]

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
		if p.InlineData != nil && out.Audio == "" {
			out.Audio = p.InlineData.Data
			out.AudioMIMEType = p.InlineData.MIMEType
		}
	}
	out.Text = text.String()

	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web != nil {
				out.Sources = append(out.Sources, *chunk.Web)
			}
		}
	}
	return out
}

func parseAPIError(code int, body []byte) *APIError {
	apiErr := &APIError{Code: code}
	var ge geminiError
	if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
		apiErr.Status = ge.Error.Status
		apiErr.Message = ge.Error.Message
		return apiErr
	}
	apiErr.Message = truncate(strings.TrimSpace(string(body)), 200)
	return apiErr
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

var _ Generator = (*GeminiClient)(nil)
