// Package speech exposes transcription and synthesis over HTTP.
package speech

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/holyai/holyai/internal/api/response"
)

// maxAudioBytes bounds uploaded recordings
const maxAudioBytes = 25 << 20

// Gateway converts between speech and text
type Gateway interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// SynthesizeRequest is the body of POST /api/speech/synthesize
type SynthesizeRequest struct {
	Text    string `json:"text" binding:"required"`
	VoiceID string `json:"voice_id"`
}

// Handler handles speech requests
type Handler struct {
	gateway Gateway
}

// NewHandler creates a new speech handler
func NewHandler(gateway Gateway) *Handler {
	return &Handler{gateway: gateway}
}

// RegisterRoutes registers speech routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transcribe", h.Transcribe)
	r.POST("/synthesize", h.Synthesize)
}

// Transcribe accepts a multipart "file" field or a raw audio body
func (h *Handler) Transcribe(c *gin.Context) {
	audio, err := readAudio(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(audio) == 0 {
		response.BadRequest(c, "audio is required")
		return
	}

	text, err := h.gateway.Transcribe(c.Request.Context(), audio)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text})
}

// Synthesize returns MP3 audio for the given text
func (h *Handler) Synthesize(c *gin.Context) {
	var req SynthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "text is required")
		return
	}

	audio, err := h.gateway.Synthesize(c.Request.Context(), req.Text, req.VoiceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func readAudio(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	return io.ReadAll(c.Request.Body)
}
