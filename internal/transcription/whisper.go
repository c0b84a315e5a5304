package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WhisperConfig configures the faster-whisper HTTP sidecar client.
type WhisperConfig struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

func (c WhisperConfig) withDefaults() WhisperConfig {
	out := c
	if out.URL == "" {
		out.URL = "http://localhost:8387"
	}
	if out.Model == "" {
		out.Model = "base"
	}
	if out.Timeout <= 0 {
		out.Timeout = 120 * time.Second
	}
	out.URL = strings.TrimRight(out.URL, "/")
	return out
}

// WhisperClient implements Transcriber against a whisper sidecar.
type WhisperClient struct {
	cfg    WhisperConfig
	client *http.Client
}

func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	cfg = cfg.withDefaults()
	return &WhisperClient{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

var ErrEmptyTranscript = errors.New("transcription: empty transcript")

// Healthy reports whether the sidecar answers its health check.
func (w *WhisperClient) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whisper health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper health: status %d", resp.StatusCode)
	}
	return nil
}

func (w *WhisperClient) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if req.AudioPath == "" {
		return nil, errors.New("transcription: audio path required")
	}
	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	filename := req.Filename
	if filename == "" {
		filename = filepath.Base(req.AudioPath)
	}
	lang := w.cfg.Language
	if req.Language != "" {
		lang = req.Language
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = mw.WriteField("model", w.cfg.Model)
	if lang != "" {
		_ = mw.WriteField("language", lang)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	res := out.toResult()
	if strings.TrimSpace(res.Text) == "" {
		return nil, ErrEmptyTranscript
	}
	return res, nil
}

type whisperResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start   float64 `json:"start"`
		End     float64 `json:"end"`
		Text    string  `json:"text"`
		Speaker string  `json:"speaker"`
	} `json:"segments"`
}

func (r whisperResponse) toResult() *Result {
	segs := make([]Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		segs = append(segs, Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text), Speaker: s.Speaker})
	}
	secs := r.Duration
	if secs <= 0 && len(segs) > 0 {
		secs = segs[len(segs)-1].End
	}
	return &Result{
		Text:     strings.TrimSpace(r.Text),
		Segments: segs,
		Language: r.Language,
		Duration: time.Duration(secs * float64(time.Second)),
	}
}
