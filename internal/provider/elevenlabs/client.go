// Package elevenlabs relays speech-to-text and text-to-speech requests to
// the ElevenLabs API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/holyai/holyai/internal/domain"
	"github.com/holyai/holyai/internal/metrics"
)

const (
	providerName = "elevenlabs"

	defaultBaseURL = "https://api.elevenlabs.io"
	defaultVoiceID = "JBFqnCBsd6RMkjVDRZzb"

	sttModel     = "scribe_v1"
	ttsModel     = "eleven_multilingual_v2"
	outputFormat = "mp3_44100_128"

	// MaxTextLength is the longest input the provider accepts for synthesis
	MaxTextLength = 5000
)

// Config holds the provider settings
type Config struct {
	APIKey     string
	VoiceID    string
	BaseURL    string
	HTTPClient *http.Client
}

// Client implements the speech gateway
type Client struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a client. A missing API key surfaces at call time.
func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		apiKey:     cfg.APIKey,
		voiceID:    cfg.VoiceID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     logger.Named(providerName),
		metrics:    m,
	}
	if c.voiceID == "" {
		c.voiceID = defaultVoiceID
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// Configured reports whether an API key was supplied
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Transcribe converts recorded audio to text
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.apiKey == "" {
		return "", &domain.SpeechError{Err: &domain.ConfigError{Key: "ELEVENLABS_API_KEY"}}
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("model_id", sttModel); err != nil {
		return "", &domain.SpeechError{Err: err}
	}
	part, err := form.CreateFormFile("file", "recording.wav")
	if err != nil {
		return "", &domain.SpeechError{Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return "", &domain.SpeechError{Err: err}
	}
	if err := form.Close(); err != nil {
		return "", &domain.SpeechError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return "", &domain.SpeechError{Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	start := time.Now()
	body, status, err := c.do(req)
	c.metrics.ObserveUpstream(providerName, "speech_to_text", start, err)
	if err != nil {
		return "", &domain.SpeechError{StatusCode: status, Err: err}
	}

	text := gjson.GetBytes(body, "text").String()
	c.logger.Debug("Speech to text completed", zap.Int("chars", len(text)))
	return text, nil
}

// Synthesize converts text to MP3 audio using voiceID, or the configured
// voice when empty. Text longer than MaxTextLength is cut and marked with an
// ellipsis.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, &domain.SpeechError{Err: &domain.ConfigError{Key: "ELEVENLABS_API_KEY"}}
	}
	if voiceID == "" {
		voiceID = c.voiceID
	}

	payload := map[string]any{
		"text":     TruncateText(text),
		"model_id": ttsModel,
		"voice_settings": map[string]float64{
			"stability":        0.5,
			"similarity_boost": 0.5,
		},
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.SpeechError{Err: fmt.Errorf("error marshaling request: %w", err)}
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", c.baseURL, url.PathEscape(voiceID), outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, &domain.SpeechError{Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("Converting text to speech",
		zap.Int("chars", len([]rune(text))),
		zap.String("voice_id", voiceID),
	)

	start := time.Now()
	audio, status, err := c.do(req)
	c.metrics.ObserveUpstream(providerName, "text_to_speech", start, err)
	if err != nil {
		return nil, &domain.SpeechError{StatusCode: status, Err: err}
	}
	return audio, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("ElevenLabs API error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, resp.StatusCode, &domain.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	return body, resp.StatusCode, nil
}

// TruncateText cuts text to MaxTextLength characters and appends "..." when
// anything was removed.
func TruncateText(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTextLength {
		return text
	}
	return string(runes[:MaxTextLength]) + "..."
}
