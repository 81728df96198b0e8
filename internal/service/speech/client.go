package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pitchlive-ai/pitchlive/backend/internal/audio"
	"github.com/pitchlive-ai/pitchlive/backend/internal/config"
)

// Client 调用 whisper 风格的 HTTP 语音识别服务。
// 短或无语音的片段由服务端返回空文本，客户端原样传递而不视为错误。
type Client struct {
	baseURL  string
	language string
	http     *http.Client
}

// NewClient 创建语音识别客户端。
func NewClient(cfg config.SpeechConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		language: cfg.Language,
		http:     &http.Client{Timeout: timeout},
	}
}

// transcribeResponse 识别服务的应答体。
type transcribeResponse struct {
	Text       string  `json:"text"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Transcribe 将采样快照编码为 WAV 并提交识别。
// 服务返回空文本表示未识别出语音，调用方据此区分"无语音"与失败。
func (c *Client) Transcribe(ctx context.Context, samples []float32, sampleRate int) (string, error) {
	wav := audio.EncodeWAV(samples, sampleRate)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", "chunk.wav")
	if err != nil {
		return "", fmt.Errorf("stt request build failed: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("stt request build failed: %w", err)
	}
	if c.language != "" {
		if err := writer.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("stt request build failed: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("stt request build failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("stt request build failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("stt %s: %s", resp.Status, string(payload))
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("stt decode failed: %w", err)
	}

	return strings.TrimSpace(out.Text), nil
}
