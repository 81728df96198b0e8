package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pitchlive-ai/pitchlive/backend/internal/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.SpeechConfig{BaseURL: url, Language: "en", Timeout: 5})
}

func TestTranscribeSendsWAVAndReturnsText(t *testing.T) {
	var gotContentType string
	var gotWAVPrefix string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotContentType = r.Header.Get("Content-Type")

		file, _, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("missing audio form file: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer file.Close()

		head := make([]byte, 4)
		file.Read(head)
		gotWAVPrefix = string(head)

		if lang := r.FormValue("language"); lang != "en" {
			t.Errorf("unexpected language field: %q", lang)
		}

		json.NewEncoder(w).Encode(map[string]any{"text": "  hello investors  "})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Transcribe(context.Background(), make([]float32, 16000), 16000)
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if text != "hello investors" {
		t.Fatalf("unexpected text: %q", text)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Fatalf("unexpected content type: %s", gotContentType)
	}
	if gotWAVPrefix != "RIFF" {
		t.Fatalf("expected wav payload, got prefix %q", gotWAVPrefix)
	}
}

func TestTranscribeEmptyTextIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": ""})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Transcribe(context.Background(), make([]float32, 1600), 16000)
	if err != nil {
		t.Fatalf("empty text must not be an error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestTranscribeServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Transcribe(context.Background(), make([]float32, 1600), 16000); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
